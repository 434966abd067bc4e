// Package control provides the discrete control laws for the brightness loop.
//
// Controllers implement the [dynamo.Controller] interface and produce one
// saturated sample per step:
//
//   - [PID]: positional PID with output bounds and anti-reset windup
//   - [Reference]: library PID baseline, clamped without windup protection
//   - [Manual]: fixed output for open-loop runs
//
// # Usage
//
//	pid, err := control.NewPID(dynamo.ControllerParams{Gain: 2, IntegralTime: 5, DerivativeTime: 0.1, OutputHigh: 1})
//	u, diag := pid.Step(setpoint, measured, disturbance, dt)
//
// Controllers carry state between steps; call Reset before reusing one.
package control
