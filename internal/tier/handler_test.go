// AngelaMos | 2026
// handler_test.go

package tier

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/carterperez-dev/tierform/internal/core"
)

type viewEnvelope struct {
	Success bool            `json:"success"`
	Data    View            `json:"data"`
	Error   *core.ErrorBody `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newTestService()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, viewEnvelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env viewEnvelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") &&
		rec.Body.Len() > 0 && strings.HasPrefix(path, "/sessions") &&
		!strings.HasSuffix(path, "/export") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", rec.Code, rec.Body.String())
	}
	return env.Data.SessionID
}

func TestHandlerSubmitFlow(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)
	base := "/sessions/" + id

	rec, env := do(t, h, http.MethodPost, base+"/submit", "")
	if rec.Code != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != CodeDefaultCount {
		t.Fatalf("submit without default: %d %s", rec.Code, rec.Body.String())
	}
	if env.Error.Message != MsgDefaultCount {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}

	rec, _ = do(t, h, http.MethodGet, base+"/export", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("export before submit: %d", rec.Code)
	}

	rec, env = do(t, h, http.MethodPatch, base+"/tiers/0", `{"default": true}`)
	if rec.Code != http.StatusOK || !env.Data.Tiers[0].Default {
		t.Fatalf("set default: %d %s", rec.Code, rec.Body.String())
	}
	if !env.Data.Tiers[1].DefaultLocked {
		t.Fatal("other tiers should report a disabled default control")
	}

	rec, env = do(t, h, http.MethodPatch, base+"/tiers/1", `{"default": true}`)
	if rec.Code != http.StatusUnprocessableEntity || env.Error.Code != CodeDefaultLocked {
		t.Fatalf("second default: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodPut, base+"/markup", `{"finance": 1.55, "lease": 0.001239}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set markup: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, h, http.MethodPost, base+"/submit", "")
	if rec.Code != http.StatusOK || env.Data.Status != StatusExported {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodGet, base+"/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	var exported []ExportTier
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatal(err)
	}
	if len(exported) != 4 || exported[0].New.Finance.Captive != 1.5 || exported[0].New.Lease.Captive != 0.00123 {
		t.Fatalf("unexpected export %+v", exported)
	}

	rec, _ = do(t, h, http.MethodGet, base+"/export.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx: %d", rec.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	label, err := f.GetCellValue(xlsxSheet, "A2")
	if err != nil || label != "Excellent credit" {
		t.Fatalf("xlsx A2 = %q, %v", label, err)
	}
}

func TestHandlerRemoveFloor(t *testing.T) {
	h := newTestRouter(t)
	base := "/sessions/" + createSession(t, h)

	for i := 0; i < 3; i++ {
		rec, _ := do(t, h, http.MethodDelete, base+"/tiers", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("remove %d: %d", i, rec.Code)
		}
	}

	rec, env := do(t, h, http.MethodDelete, base+"/tiers", "")
	if rec.Code != http.StatusUnprocessableEntity || env.Error.Code != CodeFloorViolation {
		t.Fatalf("remove last: %d %s", rec.Code, rec.Body.String())
	}

	_, env = do(t, h, http.MethodGet, base, "")
	if len(env.Data.Tiers) != 1 {
		t.Fatalf("expected 1 tier, got %d", len(env.Data.Tiers))
	}
}

func TestHandlerOverrides(t *testing.T) {
	h := newTestRouter(t)
	base := "/sessions/" + createSession(t, h)

	rec, env := do(t, h, http.MethodPut, base+"/tiers/2/overrides/new", `{"finance": 2.75, "lease": 0.0042}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set override: %d %s", rec.Code, rec.Body.String())
	}
	tv := env.Data.Tiers[2]
	if !tv.CustomMarkup.Enabled || tv.New.Finance.Captive != 2.7 || tv.Used.Lease.Captive != 0.0042 {
		t.Fatalf("override not derived: %+v", tv)
	}

	rec, env = do(t, h, http.MethodPatch, base+"/tiers/2/overrides/new", `{"enabled": false}`)
	if rec.Code != http.StatusOK || env.Data.Tiers[2].New.Finance.Captive != 0 {
		t.Fatalf("toggle off: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerBadRequests(t *testing.T) {
	h := newTestRouter(t)
	base := "/sessions/" + createSession(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", "", http.StatusNotFound},
		{"bad index", http.MethodPatch, base + "/tiers/abc", `{"label":"x"}`, http.StatusBadRequest},
		{"index out of range", http.MethodPatch, base + "/tiers/12", `{"label":"x"}`, http.StatusBadRequest},
		{"empty update", http.MethodPatch, base + "/tiers/0", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPatch, base + "/tiers/0", `{"label":`, http.StatusBadRequest},
		{"bad which", http.MethodPut, base + "/tiers/0/overrides/leased", `{"finance":1,"lease":1}`, http.StatusBadRequest},
		{"override missing lease", http.MethodPut, base + "/tiers/0/overrides/new", `{"finance":1}`, http.StatusBadRequest},
		{"toggle missing enabled", http.MethodPatch, base + "/tiers/0/overrides/used", `{}`, http.StatusBadRequest},
		{"empty markup", http.MethodPut, base + "/markup", `{}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, h, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			if env.Success || env.Error == nil {
				t.Fatalf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestHandlerMinValueClampedAndSessionEnd(t *testing.T) {
	h := newTestRouter(t)
	base := "/sessions/" + createSession(t, h)

	rec, env := do(t, h, http.MethodPatch, base+"/tiers/3", `{"minValue": 1000, "label": "Top"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if env.Data.Tiers[3].MinValue != MaxScore || env.Data.Tiers[3].Label != "Top" {
		t.Fatalf("unexpected tier %+v", env.Data.Tiers[3])
	}

	rec, _ = do(t, h, http.MethodDelete, base, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("end session: %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ended session still reachable: %d", rec.Code)
	}
}

func TestHandlerMinValueBeyondIntegerRangeIsClamped(t *testing.T) {
	h := newTestRouter(t)
	base := "/sessions/" + createSession(t, h)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"huge positive", `{"minValue": 99999999999999999999}`, MaxScore},
		{"huge negative", `{"minValue": -99999999999999999999}`, MinScore},
		{"below range", `{"minValue": 12}`, MinScore},
		{"in range", `{"minValue": 612}`, 612},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPatch, base+"/tiers/1", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			if got := env.Data.Tiers[1].MinValue; got != tc.want {
				t.Fatalf("minValue = %d, want %d", got, tc.want)
			}
		})
	}

	rec, _ := do(t, h, http.MethodPatch, base+"/tiers/1", `{"minValue": "700"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric score: status %d, want 400", rec.Code)
	}
}
