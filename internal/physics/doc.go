// Package physics provides the plant models driven by the control loop.
//
// Each model implements the [dynamo.System] interface:
//
//   - [FirstOrderLag]: brightness actuator, dL/dt = (-L + Kp*u) / tauP
//
// Models are pure functions of state and input; dead time is handled by
// the simulator's delay line, not by the model.
package physics
