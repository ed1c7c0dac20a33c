package indicator

import "fmt"

// Minimum is the lowest low over the last period observations
type Minimum[B Lower] struct {
	period int
	ext    *MonotonicExtremum
}

// NewMinimum creates a rolling minimum of lows
func NewMinimum[B Lower](period int) (*Minimum[B], error) {
	if err := checkPeriod("MIN", period); err != nil {
		return nil, err
	}
	return &Minimum[B]{period: period, ext: NewMonotonicMin(period)}, nil
}

// DefaultMinimum returns MIN(14)
func DefaultMinimum[B Lower]() *Minimum[B] { return must(NewMinimum[B](14)) }

func (m *Minimum[B]) Update(b B) float64 { return m.ext.Push(b.LowPrice()) }
func (m *Minimum[B]) Value() float64     { return m.ext.Value() }
func (m *Minimum[B]) Reset()             { m.ext.Reset() }
func (m *Minimum[B]) Period() int        { return m.period }
func (m *Minimum[B]) String() string     { return fmt.Sprintf("MIN(%d)", m.period) }

// Maximum is the highest high over the last period observations
type Maximum[B Higher] struct {
	period int
	ext    *MonotonicExtremum
}

// NewMaximum creates a rolling maximum of highs
func NewMaximum[B Higher](period int) (*Maximum[B], error) {
	if err := checkPeriod("MAX", period); err != nil {
		return nil, err
	}
	return &Maximum[B]{period: period, ext: NewMonotonicMax(period)}, nil
}

// DefaultMaximum returns MAX(14)
func DefaultMaximum[B Higher]() *Maximum[B] { return must(NewMaximum[B](14)) }

func (m *Maximum[B]) Update(b B) float64 { return m.ext.Push(b.HighPrice()) }
func (m *Maximum[B]) Value() float64     { return m.ext.Value() }
func (m *Maximum[B]) Reset()             { m.ext.Reset() }
func (m *Maximum[B]) Period() int        { return m.period }
func (m *Maximum[B]) String() string     { return fmt.Sprintf("MAX(%d)", m.period) }
