package policy

import (
	"fmt"

	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
)

// #region mode
// Mode selects the verification tier.
type Mode string

const (
	// ModeStrict is Mode A, used for pilots and new devices.
	ModeStrict Mode = "strict"
	// ModeEvidenceRich is Mode B, used for graduated mature devices.
	ModeEvidenceRich Mode = "evidence-rich"
)

// DefaultMode applies when no mode is configured.
const DefaultMode = ModeStrict
// #endregion mode

// #region preset
// Preset holds the decision thresholds of one mode.
type Preset struct {
	AutoApprove float64 `json:"auto_approve" yaml:"auto_approve"`
	Flag        float64 `json:"flag" yaml:"flag"`
	Reject      float64 `json:"reject" yaml:"reject"`
	Description string  `json:"description" yaml:"description"`
}
// #endregion preset

// #region errors
// UnknownModeError reports a mode with no preset.
type UnknownModeError struct {
	Mode Mode
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown verification mode %q (want %q or %q)", string(e.Mode), ModeStrict, ModeEvidenceRich)
}

// Is makes UnknownModeError match fault.ErrConfiguration.
func (e *UnknownModeError) Is(target error) bool { return target == fault.ErrConfiguration }
// #endregion errors
