package rinex

import (
	"fmt"
	"math"
)

// outExp renders value as RINEX navigation-file wants it: a fixed
// number of mantissa digits followed by a normalised two-digit
// exponent (E+NN/E-NN). Grounded on the teacher's OutNavf_n in
// renix.go, which computes the exponent by hand via math.Log10
// rather than trusting the runtime's own %E verb to stay two-digit
// across platforms and edge cases like exact powers of ten.
func outExp(value float64, mantissaDigits int) string {
	e := math.Floor(math.Log10(math.Abs(value)) + 1.0)
	if math.Abs(value) < 1e-99 {
		e = 0.0
	}
	sign := " "
	if value < 0.0 {
		sign = "-"
	}
	mant := math.Abs(value) / math.Pow(10.0, e-float64(mantissaDigits))
	return fmt.Sprintf(" %s.%0*.0fE%+03.0f", sign, mantissaDigits, mant, e)
}
