package fault

import "errors"

// #region kinds
// Kind identifies the broad class of a failure so callers can react
// without matching concrete error types.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration"
	KindData          Kind = "data"
	KindArithmetic    Kind = "arithmetic"
)

// Sentinels matched by concrete errors through errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrData          = errors.New("data error")
	ErrArithmetic    = errors.New("arithmetic error")
)
// #endregion kinds

// #region classify
// KindOf reports the kind of err, walking wrapped errors.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrData):
		return KindData
	case errors.Is(err, ErrArithmetic):
		return KindArithmetic
	default:
		return KindUnknown
	}
}
// #endregion classify
