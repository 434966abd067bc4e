package control

import (
	"time"

	"go.einride.tech/pid"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// Reference wraps the einride PID as a baseline: derivative on error, the
// output clamped afterwards with no windup protection. It is converted from
// the same (Kc, tauI, tauD) tuning so runs can be compared side by side.
type Reference struct {
	params dynamo.ControllerParams
	ctrl   pid.Controller
}

func NewReference(params dynamo.ControllerParams) (*Reference, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	r := &Reference{params: params}
	r.ctrl.Config = pid.ControllerConfig{
		ProportionalGain: params.Gain,
		IntegralGain:     params.Gain / params.IntegralTime,
		DerivativeGain:   params.Gain * params.DerivativeTime,
	}
	return r, nil
}

func (r *Reference) Step(setpoint, measured, disturbance, dt float64) (float64, dynamo.Diagnostics) {
	r.ctrl.Update(pid.ControllerInput{
		ReferenceSignal:  setpoint,
		ActualSignal:     measured - disturbance,
		SamplingInterval: seconds(dt),
	})

	st := r.ctrl.State
	raw := st.ControlSignal
	out, clipped := r.params.Clamp(raw)

	return out, dynamo.Diagnostics{
		Error:         st.ControlError,
		IntegralError: st.ControlErrorIntegral,
		Proportional:  r.ctrl.Config.ProportionalGain * st.ControlError,
		Integral:      r.ctrl.Config.IntegralGain * st.ControlErrorIntegral,
		Derivative:    r.ctrl.Config.DerivativeGain * st.ControlErrorDerivative,
		Raw:           raw,
		Saturated:     clipped,
	}
}

func (r *Reference) Reset() {
	r.ctrl.Reset()
}

func seconds(dt float64) time.Duration {
	return time.Duration(dt * float64(time.Second))
}
