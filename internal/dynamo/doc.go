// Package dynamo provides the closed-loop simulation engine.
//
// The package defines the interfaces and records shared by the rest of the
// module:
//
//   - [State]: plant state vector (a single brightness level here)
//   - [System]: continuous plant, dX/dt = f(X, u, t)
//   - [Integrator] and [Advancer]: one explicit step, and a whole sample
//     interval under zero-order hold
//   - [Controller]: discrete control law producing one sample per step
//   - [Delay]: dead time as a lookup into past control samples
//   - [Simulator]: orchestrates one run and records a [Trace]
//
// # Example
//
//	plant := physics.NewFirstOrderLag(pp)
//	hold := integrators.NewHold(integrators.NewRK4(), 10)
//	s := dynamo.New(plant, hold, control.NewPID(cp), dynamo.WithDeadTime(pp.DeadTime))
//	trace, err := s.Run(scenario)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe: the controller carries state
// through a run. Build one simulator per concurrent run.
package dynamo
