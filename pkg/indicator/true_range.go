package indicator

import "math"

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and yields high-low.
type TrueRange[B HighLowClose] struct {
	prevClose float64
	seeded    bool
	value     float64
}

// NewTrueRange creates a true range indicator. It has no period.
func NewTrueRange[B HighLowClose]() *TrueRange[B] {
	return &TrueRange[B]{}
}

func (t *TrueRange[B]) Update(b B) float64 {
	high, low, closePrice := b.HighPrice(), b.LowPrice(), b.ClosePrice()
	tr := high - low
	if t.seeded {
		tr = math.Max(tr, math.Max(math.Abs(high-t.prevClose), math.Abs(low-t.prevClose)))
	}
	t.prevClose = closePrice
	t.seeded = true
	t.value = tr
	return tr
}

func (t *TrueRange[B]) Value() float64 { return t.value }

func (t *TrueRange[B]) Reset() {
	t.prevClose = 0
	t.seeded = false
	t.value = 0
}

func (t *TrueRange[B]) String() string { return "TRUE_RANGE" }
