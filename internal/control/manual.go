package control

import "github.com/san-kum/lumasim/internal/dynamo"

// Manual holds the actuator at a fixed command and ignores the loop signals.
// It drives open-loop runs such as step-response checks.
type Manual struct {
	Output float64
}

func NewManual(output float64) *Manual {
	return &Manual{Output: output}
}

// SetOutput changes the held command for subsequent steps.
func (c *Manual) SetOutput(u float64) {
	c.Output = u
}

func (c *Manual) Step(setpoint, measured, disturbance, dt float64) (float64, dynamo.Diagnostics) {
	return c.Output, dynamo.Diagnostics{
		Error: setpoint - (measured - disturbance),
		Raw:   c.Output,
	}
}

func (c *Manual) Reset() {}
