// AngelaMos | 2026
// errors.go

package tier

import (
	"errors"
	"fmt"

	"github.com/carterperez-dev/tierform/internal/core"
)

var (
	ErrFloorViolation = errors.New("at least one tier is required")
	ErrDefaultLocked  = errors.New("another tier is already the default")
	ErrDefaultCount   = errors.New("exactly one tier must be the default")
	ErrNoExport       = fmt.Errorf("no export yet: %w", core.ErrNotFound)
	ErrTierIndex      = fmt.Errorf("tier index out of range: %w", core.ErrInvalidInput)
)

const (
	CodeFloorViolation = "FLOOR_VIOLATION"
	CodeDefaultLocked  = "DEFAULT_LOCKED"
	CodeDefaultCount   = "DEFAULT_COUNT"
)

const (
	MsgFloorViolation = "Cannot remove the last tier."
	MsgDefaultLocked  = "Another tier is already the default tier."
	MsgDefaultCount   = "Please select exactly one tier as the default."
)
