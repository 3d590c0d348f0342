// AngelaMos | 2026
// handler.go

package tier

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/carterperez-dev/tierform/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.EndSession)

			r.Put("/markup", h.SetMarkup)

			r.Post("/tiers", h.AddTier)
			r.Delete("/tiers", h.RemoveTier)
			r.Patch("/tiers/{index}", h.UpdateTier)
			r.Put("/tiers/{index}/overrides/{which}", h.SetOverride)
			r.Patch("/tiers/{index}/overrides/{which}", h.ToggleOverride)

			r.Post("/submit", h.Submit)
			r.Get("/export", h.GetExport)
			r.Get("/export.xlsx", h.GetExportXLSX)
		})
	})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.End(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) SetMarkup(w http.ResponseWriter, r *http.Request) {
	var req SetMarkupRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.SetMarkup(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) AddTier(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.AddTier(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) RemoveTier(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveTier(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	var req UpdateTierRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.IsEmpty() {
		core.BadRequest(w, "at least one field must be provided")
		return
	}

	view, err := h.service.UpdateTier(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		index,
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	which, err := ParseWhich(chi.URLParam(r, "which"))
	if err != nil {
		core.BadRequest(w, "which must be one of: new used")
		return
	}

	var req SetOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.SetOverride(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		index,
		which,
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) ToggleOverride(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	which, err := ParseWhich(chi.URLParam(r, "which"))
	if err != nil {
		core.BadRequest(w, "which must be one of: new used")
		return
	}

	var req ToggleOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.ToggleOverride(
		r.Context(),
		chi.URLParam(r, "sessionID"),
		index,
		which,
		*req.Enabled,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, view)
}

// GetExport writes the latest export document as is.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LatestExport(
		r.Context(),
		chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write([]byte(result.Document))
}

func (h *Handler) GetExportXLSX(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LatestExport(
		r.Context(),
		chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(
		"Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	)
	w.Header().Set("Content-Disposition", `attachment; filename="tiers.xlsx"`)

	if err := WriteXLSX(w, result); err != nil {
		core.InternalServerError(w, err)
		return
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		core.BadRequest(w, "tier index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoExport):
		core.NotFound(w, "export")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "session")
	case errors.Is(err, ErrFloorViolation):
		core.JSONError(w, core.UnprocessableError(CodeFloorViolation, MsgFloorViolation))
	case errors.Is(err, ErrDefaultLocked):
		core.JSONError(w, core.UnprocessableError(CodeDefaultLocked, MsgDefaultLocked))
	case errors.Is(err, ErrDefaultCount):
		core.JSONError(w, core.UnprocessableError(CodeDefaultCount, MsgDefaultCount))
	case errors.Is(err, ErrTierIndex):
		core.BadRequest(w, "tier index out of range")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid input")
	default:
		core.InternalServerError(w, err)
	}
}
