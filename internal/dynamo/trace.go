package dynamo

// Trace is the full record of one closed-loop run. Every slice has length
// Grid.Len(). ProcessValue[i] is the plant output entering step i; the other
// columns hold the result of processing step i. The last slot of the control
// columns repeats the one before it, since the plant advances one step past
// the final control decision.
type Trace struct {
	Grid          Grid      `json:"grid"`
	Times         []float64 `json:"times"`
	Setpoint      []float64 `json:"setpoint"`
	Disturbance   []float64 `json:"disturbance"`
	ProcessValue  []float64 `json:"process_value"`
	ControlOutput []float64 `json:"control_output"`
	Applied       []float64 `json:"applied"`
	Error         []float64 `json:"error"`
	IntegralError []float64 `json:"integral_error"`
	DerivativePV  []float64 `json:"derivative_pv"`
	Proportional  []float64 `json:"proportional"`
	Integral      []float64 `json:"integral"`
	Derivative    []float64 `json:"derivative"`
	Saturated     []bool    `json:"saturated"`
}

// Sample is one row of a Trace.
type Sample struct {
	Index         int
	Time          float64
	Setpoint      float64
	Disturbance   float64
	ProcessValue  float64
	ControlOutput float64
	Applied       float64
	Diagnostics
}

// NewTrace allocates every column once at the grid length and copies the
// scenario signals so the trace owns all of its data.
func NewTrace(sc Scenario) *Trace {
	n := sc.Grid.Len()
	tr := &Trace{
		Grid:          sc.Grid,
		Times:         sc.Grid.Times(),
		Setpoint:      make([]float64, n),
		Disturbance:   make([]float64, n),
		ProcessValue:  make([]float64, n),
		ControlOutput: make([]float64, n),
		Applied:       make([]float64, n),
		Error:         make([]float64, n),
		IntegralError: make([]float64, n),
		DerivativePV:  make([]float64, n),
		Proportional:  make([]float64, n),
		Integral:      make([]float64, n),
		Derivative:    make([]float64, n),
		Saturated:     make([]bool, n),
	}
	copy(tr.Setpoint, sc.Setpoint)
	copy(tr.Disturbance, sc.Disturbance)
	return tr
}

func (t *Trace) Len() int { return len(t.Times) }

// Relative is the disturbance-compensated brightness the controller regulates.
func (t *Trace) Relative(i int) float64 {
	return t.ProcessValue[i] - t.Disturbance[i]
}

func (t *Trace) Sample(i int) Sample {
	return Sample{
		Index:         i,
		Time:          t.Times[i],
		Setpoint:      t.Setpoint[i],
		Disturbance:   t.Disturbance[i],
		ProcessValue:  t.ProcessValue[i],
		ControlOutput: t.ControlOutput[i],
		Applied:       t.Applied[i],
		Diagnostics: Diagnostics{
			Error:         t.Error[i],
			IntegralError: t.IntegralError[i],
			DerivativePV:  t.DerivativePV[i],
			Proportional:  t.Proportional[i],
			Integral:      t.Integral[i],
			Derivative:    t.Derivative[i],
			Saturated:     t.Saturated[i],
		},
	}
}

// SaturationCount is the number of steps whose output was clipped.
func (t *Trace) SaturationCount() int {
	n := 0
	for _, s := range t.Saturated[:t.Len()-1] {
		if s {
			n++
		}
	}
	return n
}

func (t *Trace) record(i int, out float64, d Diagnostics) {
	t.ControlOutput[i] = out
	t.Error[i] = d.Error
	t.IntegralError[i] = d.IntegralError
	t.DerivativePV[i] = d.DerivativePV
	t.Proportional[i] = d.Proportional
	t.Integral[i] = d.Integral
	t.Derivative[i] = d.Derivative
	t.Saturated[i] = d.Saturated
}

func (t *Trace) backfill() {
	last := t.Len() - 1
	if last < 1 {
		return
	}
	t.ControlOutput[last] = t.ControlOutput[last-1]
	t.Applied[last] = t.Applied[last-1]
	t.Error[last] = t.Error[last-1]
	t.IntegralError[last] = t.IntegralError[last-1]
	t.DerivativePV[last] = t.DerivativePV[last-1]
	t.Proportional[last] = t.Proportional[last-1]
	t.Integral[last] = t.Integral[last-1]
	t.Derivative[last] = t.Derivative[last-1]
	t.Saturated[last] = t.Saturated[last-1]
}
