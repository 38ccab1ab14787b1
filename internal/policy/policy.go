package policy

// #region presets
var presets = map[Mode]Preset{
	ModeStrict: {
		AutoApprove: 0.97,
		Flag:        0.50,
		Reject:      0.50,
		Description: "Regulator-strict mode for pilots",
	},
	ModeEvidenceRich: {
		AutoApprove: 0.90,
		Flag:        0.70,
		Reject:      0.70,
		Description: "Evidence-rich mode for mature plants",
	},
}
// #endregion presets

// #region resolve
// Resolve returns the preset for mode. An empty mode resolves to
// DefaultMode; any other unknown value is an *UnknownModeError.
func Resolve(mode Mode) (Preset, error) {
	if mode == "" {
		mode = DefaultMode
	}
	p, ok := presets[mode]
	if !ok {
		return Preset{}, &UnknownModeError{Mode: mode}
	}
	return p, nil
}

// Normalize maps an empty mode to DefaultMode and leaves others unchanged.
func Normalize(mode Mode) Mode {
	if mode == "" {
		return DefaultMode
	}
	return mode
}

// Modes lists the known modes in a stable order.
func Modes() []Mode {
	return []Mode{ModeStrict, ModeEvidenceRich}
}
// #endregion resolve
