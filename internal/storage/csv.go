package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// TraceHeader is the column order of trace.csv.
var TraceHeader = []string{
	"time", "setpoint", "disturbance", "pv", "relative",
	"op", "applied", "error", "integral_error", "dpv",
	"p", "i", "d", "saturated",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTraceCSV writes one row per grid point. Floats use the shortest
// representation that parses back to the same value.
func WriteTraceCSV(w io.Writer, tr *dynamo.Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TraceHeader); err != nil {
		return err
	}

	row := make([]string, len(TraceHeader))
	for i := 0; i < tr.Len(); i++ {
		row[0] = formatFloat(tr.Times[i])
		row[1] = formatFloat(tr.Setpoint[i])
		row[2] = formatFloat(tr.Disturbance[i])
		row[3] = formatFloat(tr.ProcessValue[i])
		row[4] = formatFloat(tr.Relative(i))
		row[5] = formatFloat(tr.ControlOutput[i])
		row[6] = formatFloat(tr.Applied[i])
		row[7] = formatFloat(tr.Error[i])
		row[8] = formatFloat(tr.IntegralError[i])
		row[9] = formatFloat(tr.DerivativePV[i])
		row[10] = formatFloat(tr.Proportional[i])
		row[11] = formatFloat(tr.Integral[i])
		row[12] = formatFloat(tr.Derivative[i])
		row[13] = strconv.FormatBool(tr.Saturated[i])
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTraceCSV parses what WriteTraceCSV wrote. The grid is inferred from
// the time column.
func ReadTraceCSV(r io.Reader) (*dynamo.Trace, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TraceHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("trace needs at least two rows, got %d", len(records)-1)
	}
	for j, name := range TraceHeader {
		if records[0][j] != name {
			return nil, fmt.Errorf("column %d: expected %q, got %q", j, name, records[0][j])
		}
	}

	rows := records[1:]
	n := len(rows)
	tr := &dynamo.Trace{
		Times:         make([]float64, n),
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
	cols := []struct {
		idx int
		dst []float64
	}{
		{0, tr.Times},
		{1, tr.Setpoint},
		{2, tr.Disturbance},
		{3, tr.ProcessValue},
		{5, tr.ControlOutput},
		{6, tr.Applied},
		{7, tr.Error},
		{8, tr.IntegralError},
		{9, tr.DerivativePV},
		{10, tr.Proportional},
		{11, tr.Integral},
		{12, tr.Derivative},
	}

	for i, rec := range rows {
		for _, c := range cols {
			v, err := strconv.ParseFloat(rec[c.idx], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i+1, TraceHeader[c.idx], err)
			}
			c.dst[i] = v
		}
		sat, err := strconv.ParseBool(rec[13])
		if err != nil {
			return nil, fmt.Errorf("row %d saturated: %w", i+1, err)
		}
		tr.Saturated[i] = sat
	}

	tr.Grid = dynamo.Grid{Dt: tr.Times[1] - tr.Times[0], Steps: n - 1}
	return tr, nil
}
