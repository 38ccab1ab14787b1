package fault

import (
	"errors"
	"fmt"
	"testing"
)

type modeErr struct{}

func (modeErr) Error() string        { return "bad mode" }
func (modeErr) Is(target error) bool { return target == ErrConfiguration }

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"sentinel data", ErrData, KindData},
		{"wrapped arithmetic", fmt.Errorf("build: %w", ErrArithmetic), KindArithmetic},
		{"typed configuration", fmt.Errorf("engine: %w", modeErr{}), KindConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
