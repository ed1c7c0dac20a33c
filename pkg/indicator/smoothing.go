package indicator

// EMAAlpha is the exponential smoothing constant 2/(period+1)
func EMAAlpha(period int) float64 {
	return 2.0 / float64(period+1)
}

// WilderAlpha is Wilder's smoothing constant 1/period
func WilderAlpha(period int) float64 {
	return 1.0 / float64(period)
}

// Smooth applies one step of exponential smoothing: prev + alpha*(x-prev)
func Smooth(prev, x, alpha float64) float64 {
	return prev + alpha*(x-prev)
}

// smoother is a seeded exponential recurrence shared by EMA, ATR and RSI.
// The first input seeds the value.
type smoother struct {
	alpha  float64
	value  float64
	seeded bool
}

func (s *smoother) next(x float64) float64 {
	if !s.seeded {
		s.value = x
		s.seeded = true
		return s.value
	}
	s.value = Smooth(s.value, x, s.alpha)
	return s.value
}

func (s *smoother) reset() {
	s.value = 0
	s.seeded = false
}
