// AngelaMos | 2026
// dto_test.go

package tier

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/carterperez-dev/tierform/internal/core"
)

func TestScoreUnmarshalClamps(t *testing.T) {
	tests := []struct {
		in   string
		want Score
	}{
		{`700`, 700},
		{`0`, MinScore},
		{`9000`, MaxScore},
		{`99999999999999999999`, MaxScore},
		{`-99999999999999999999`, MinScore},
	}

	for _, tc := range tests {
		var s Score
		if err := json.Unmarshal([]byte(tc.in), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if s != tc.want {
			t.Errorf("unmarshal %s = %d, want %d", tc.in, s, tc.want)
		}
	}
}

func TestScoreUnmarshalRejectsNonIntegers(t *testing.T) {
	for _, in := range []string{`"700"`, `700.5`, `true`} {
		var s Score
		err := s.UnmarshalJSON([]byte(in))
		if !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("UnmarshalJSON(%s) error = %v, want invalid input", in, err)
		}
	}
}
