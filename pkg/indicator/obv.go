package indicator

// OBV is On Balance Volume: volume is added on an up close, subtracted on a
// down close and ignored on an unchanged close. The accumulator starts at 0,
// so the first bar contributes nothing.
type OBV[B CloseVolume] struct {
	prevClose float64
	hasPrev   bool
	value     float64
}

// NewOBV creates an On Balance Volume accumulator. It has no period.
func NewOBV[B CloseVolume]() *OBV[B] {
	return &OBV[B]{}
}

func (o *OBV[B]) Update(b B) float64 {
	closePrice := b.ClosePrice()
	if o.hasPrev {
		switch {
		case closePrice > o.prevClose:
			o.value += b.TradedVolume()
		case closePrice < o.prevClose:
			o.value -= b.TradedVolume()
		}
	}
	o.prevClose = closePrice
	o.hasPrev = true
	return o.value
}

func (o *OBV[B]) Value() float64 { return o.value }

func (o *OBV[B]) Reset() {
	o.prevClose = 0
	o.hasPrev = false
	o.value = 0
}

func (o *OBV[B]) String() string { return "OBV" }
