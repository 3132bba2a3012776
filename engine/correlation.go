package engine

import (
	"fmt"
	"math"
)

// ============================================================================
// CORRELATION CALCULATOR — Pairwise Pearson over numeric columns
// ============================================================================
// Sentinel for undefined pairs: a constant column has no variance, so every
// off-diagonal cell touching it is 0 and the column is listed in Constant.
// The diagonal is always 1.
// ============================================================================

// CorrelationMatrix is a symmetric matrix indexed by Params.
// Insufficient is set (and Values is empty) when fewer than 2 records exist.
type CorrelationMatrix struct {
	Insufficient bool        `json:"insufficient"`
	Records      int         `json:"records"`
	Params       []Measure   `json:"params"`
	Values       [][]float64 `json:"values"`
	Constant     []Measure   `json:"constant,omitempty"`
}

// At returns the coefficient for (a, b).
func (m CorrelationMatrix) At(a, b Measure) (float64, bool) {
	i, j := -1, -1
	for k, p := range m.Params {
		if p == a {
			i = k
		}
		if p == b {
			j = k
		}
	}
	if i < 0 || j < 0 || m.Insufficient {
		return 0, false
	}
	return m.Values[i][j], true
}

// Correlate computes Pearson coefficients for every pair of params over
// view. Empty params selects every sensor parameter present in the view.
// With fewer than 2 records it returns an Insufficient matrix together with
// ErrInsufficientData.
func Correlate(view RecordView, params []Measure) (CorrelationMatrix, error) {
	if len(params) == 0 {
		for _, m := range view.MeasureKeys() {
			if m != MeasureProduction && m != MeasureCycleTime {
				params = append(params, m)
			}
		}
	}
	for _, p := range params {
		if !p.Valid() {
			return CorrelationMatrix{}, fmt.Errorf("%w: %s", ErrUnknownMeasure, p)
		}
	}

	n := view.Len()
	matrix := CorrelationMatrix{Records: n, Params: params, Values: [][]float64{}}
	if n < 2 {
		matrix.Insufficient = true
		return matrix, fmt.Errorf("%w: correlation needs at least 2 records, have %d", ErrInsufficientData, n)
	}

	columns := make([][]float64, len(params))
	constant := make([]bool, len(params))
	for k, p := range params {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = view.Measure(i, p)
		}
		columns[k] = col
		constant[k] = isConstant(col)
		if constant[k] {
			matrix.Constant = append(matrix.Constant, p)
		}
	}

	matrix.Values = make([][]float64, len(params))
	for i := range params {
		matrix.Values[i] = make([]float64, len(params))
		matrix.Values[i][i] = 1
	}
	for i := range params {
		for j := i + 1; j < len(params); j++ {
			var r float64
			if !constant[i] && !constant[j] {
				r, _ = Pearson(columns[i], columns[j])
			}
			matrix.Values[i][j] = r
			matrix.Values[j][i] = r
		}
	}
	return matrix, nil
}

// Pearson returns the correlation coefficient of x and y, clamped to
// [-1, 1]. ok is false when the inputs differ in length, have fewer than 2
// points, or either side has zero variance.
func Pearson(x, y []float64) (r float64, ok bool) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, false
	}

	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 || isConstant(x) || isConstant(y) {
		return 0, false
	}

	r = sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r)), true
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
