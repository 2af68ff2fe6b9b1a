package stats

import "math"

// Lag polynomials are stored as full coefficient slices c where
// c(B) = c[0] + c[1]B + c[2]B^2 + ..., with c[0] normally 1.

// PolyMul multiplies two lag polynomials.
func PolyMul(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// DifferencingPolynomial returns (1-B)^d (1-B^m)^D.
func DifferencingPolynomial(d, seasonalD, period int) []float64 {
	poly := []float64{1}
	for i := 0; i < d; i++ {
		poly = PolyMul(poly, []float64{1, -1})
	}
	if period > 1 {
		seasonal := make([]float64, period+1)
		seasonal[0] = 1
		seasonal[period] = -1
		for i := 0; i < seasonalD; i++ {
			poly = PolyMul(poly, seasonal)
		}
	}
	return poly
}

// ExpandAR folds differencing into autoregressive coefficients.
// phi uses the phi(B) = 1 - sum(phi_i B^i) convention and so does the result,
// which describes the non-stationary operator phi(B)(1-B)^d(1-B^m)^D.
func ExpandAR(phi []float64, d, seasonalD, period int) []float64 {
	ar := make([]float64, len(phi)+1)
	ar[0] = 1
	for i, v := range phi {
		ar[i+1] = -v
	}
	full := PolyMul(ar, DifferencingPolynomial(d, seasonalD, period))

	out := make([]float64, len(full)-1)
	for i := range out {
		out[i] = -full[i+1]
	}
	return out
}

// PsiWeights returns psi_0..psi_{h-1} of the MA(infinity) representation of
// an ARMA process with phi(B) = 1 - sum(ar_i B^i) and theta(B) = 1 + sum(ma_j B^j).
func PsiWeights(ar, ma []float64, h int) []float64 {
	if h <= 0 {
		return nil
	}
	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j <= len(ma) {
			v = ma[j-1]
		}
		for i := 1; i <= len(ar) && i <= j; i++ {
			v += ar[i-1] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// ForecastStdErrors returns the h-step forecast standard errors
// sqrt(sigma2 * sum_{j<h} psi_j^2) for h = 1..len(psi).
func ForecastStdErrors(sigma2 float64, psi []float64) []float64 {
	se := make([]float64, len(psi))
	cum := 0.0
	for i, p := range psi {
		cum += p * p
		se[i] = math.Sqrt(sigma2 * cum)
	}
	return se
}
