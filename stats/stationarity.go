package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/rollforecast/timeseries"
)

// Critical values for unit-root tests with a constant and no trend.
var unitRootCriticalVals = map[string]float64{
	"1%":  -3.43,
	"5%":  -2.86,
	"10%": -2.57,
}

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test for a unit root.
// H0: the series has a unit root. IsStationary is set when p < 0.05.
// maxLag <= 0 selects floor((n-1)^(1/3)).
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff.Values[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	fit, ok := olsRegression(x, y)
	if !ok {
		return nil
	}

	tStat := fit.coeffs[1] / fit.stdErrors[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic:    tStat,
		PValue:       pValue,
		Lags:         maxLag,
		NObs:         nObs,
		CriticalVals: unitRootCriticalVals,
		IsStationary: pValue < 0.05,
	}
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test.
// H0: the series is level ("c") or trend ("ct") stationary.
// IsStationary is set when the null is not rejected at 5%.
func KPSS(series *timeseries.Series, regression string, nlags int) *KPSSResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		x := mat.NewDense(n, 2, nil)
		y := mat.NewVecDense(n, series.Values)
		for i := 0; i < n; i++ {
			x.Set(i, 0, 1)
			x.Set(i, 1, float64(i))
		}
		fit, ok := olsRegression(x, y)
		if !ok {
			return nil
		}
		copy(residuals, fit.residuals)
	} else {
		mean := series.Mean()
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	s2 := longRunVariance(residuals, nlags)
	if s2 <= 0 {
		s2 = 1e-10
	}

	partial := 0.0
	etaSq := 0.0
	for _, r := range residuals {
		partial += r
		etaSq += partial * partial
	}
	stat := etaSq / (float64(n) * float64(n) * s2)

	criticalVals := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		criticalVals = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}

	pValue := kpssPValue(stat, regression)

	return &KPSSResult{
		Statistic:    stat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: criticalVals,
		IsStationary: pValue >= 0.05,
	}
}

// PhillipsPerronResult represents the result of a Phillips-Perron test.
type PhillipsPerronResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// PhillipsPerron performs the Phillips-Perron unit-root test, which corrects
// the Dickey-Fuller statistic for serial correlation non-parametrically.
func PhillipsPerron(series *timeseries.Series, nlags int) *PhillipsPerronResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	}

	diff := series.Diff()
	nObs := n - 1
	x := mat.NewDense(nObs, 2, nil)
	y := mat.NewVecDense(nObs, diff.Values)
	for i := 0; i < nObs; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[i])
	}

	fit, ok := olsRegression(x, y)
	if !ok {
		return nil
	}

	gamma0 := 0.0
	for _, r := range fit.residuals {
		gamma0 += r * r
	}
	gamma0 /= float64(nObs)
	lambda2 := longRunVariance(fit.residuals, nlags)

	lagged := series.Values[:nObs]
	xMean := 0.0
	for _, v := range lagged {
		xMean += v
	}
	xMean /= float64(nObs)
	sumXDev2 := 0.0
	for _, v := range lagged {
		sumXDev2 += (v - xMean) * (v - xMean)
	}

	tStat := fit.coeffs[1] / fit.stdErrors[1]
	correction := 0.0
	if lambda2 > 0 && sumXDev2 > 0 {
		correction = (lambda2 - gamma0) * math.Sqrt(float64(nObs)) / (2 * math.Sqrt(lambda2) * math.Sqrt(sumXDev2))
	}
	ppStat := tStat
	if lambda2 > 0 {
		ppStat = math.Sqrt(gamma0/lambda2)*tStat - correction
	}

	pValue := mackinnonPValue(ppStat)

	return &PhillipsPerronResult{
		Statistic:    ppStat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: unitRootCriticalVals,
		IsStationary: pValue < 0.05,
	}
}

// longRunVariance is the Newey-West estimator with Bartlett weights.
func longRunVariance(residuals []float64, nlags int) float64 {
	n := len(residuals)
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= nlags && l < n; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	return s2
}

type olsFit struct {
	coeffs    []float64
	stdErrors []float64
	residuals []float64
}

// olsRegression solves y = X*beta by QR decomposition and derives coefficient
// standard errors from (X'X)^-1.
func olsRegression(x *mat.Dense, y *mat.VecDense) (olsFit, bool) {
	n, k := x.Dims()
	if n <= k {
		return olsFit{}, false
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return olsFit{}, false
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	residuals := make([]float64, n)
	sse := 0.0
	for i := 0; i < n; i++ {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
		sse += residuals[i] * residuals[i]
	}

	var xtx, inv mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		return olsFit{}, false
	}

	s2 := sse / float64(n-k)
	coeffs := make([]float64, k)
	stdErrors := make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * inv.At(i, i))
		if stdErrors[i] == 0 || math.IsNaN(stdErrors[i]) {
			return olsFit{}, false
		}
	}

	return olsFit{coeffs: coeffs, stdErrors: stdErrors, residuals: residuals}, true
}

// mackinnonPValue approximates the p-value of a Dickey-Fuller type statistic
// (constant, no trend) by interpolating asymptotic critical values.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue approximates the KPSS p-value from tabulated critical values.
func kpssPValue(stat float64, regression string) float64 {
	if regression == "ct" {
		switch {
		case stat > 0.216:
			return 0.01
		case stat > 0.146:
			return 0.05
		case stat > 0.119:
			return 0.10
		default:
			return 0.10 + (0.119-stat)*2
		}
	}

	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return 0.10 + (0.347-stat)*0.5
	}
}
