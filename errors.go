package bgan

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// A ShapeError is returned when tensors handed to the
// loss functions or networks disagree in size.
// Shapes are never broadcast.
type ShapeError struct {
	Context  string
	Expected int
	Actual   int
}

func (s *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: expected %d, got %d", s.Context,
		s.Expected, s.Actual)
}

// A NumericError reports a NaN or infinite value in a
// loss or importance weight.
type NumericError struct {
	Phase string
	Epoch int
	Step  int
	Value float64
}

func (n *NumericError) Error() string {
	return fmt.Sprintf("numeric instability in %s phase (epoch=%d step=%d): value=%v",
		n.Phase, n.Epoch, n.Step, n.Value)
}

// A ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Value string
	Msg   string
}

func (c *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", c.Field, c.Value, c.Msg)
}

// IsNumericError checks if the cause of err is a
// *NumericError.
func IsNumericError(err error) bool {
	_, ok := errors.Cause(err).(*NumericError)
	return ok
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
