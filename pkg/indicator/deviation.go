package indicator

import "fmt"

// StandardDeviation is the population standard deviation over the last period prices
type StandardDeviation struct {
	period int
	sd     *RollingStdDev
}

// NewStandardDeviation creates a rolling standard deviation
func NewStandardDeviation(period int) (*StandardDeviation, error) {
	if err := checkPeriod("SD", period); err != nil {
		return nil, err
	}
	return &StandardDeviation{period: period, sd: NewRollingStdDev(period)}, nil
}

// DefaultStandardDeviation returns SD(14)
func DefaultStandardDeviation() *StandardDeviation { return must(NewStandardDeviation(14)) }

func (s *StandardDeviation) Update(x float64) float64 { return s.sd.Push(x) }
func (s *StandardDeviation) Value() float64           { return s.sd.Value() }
func (s *StandardDeviation) Reset()                   { s.sd.Reset() }
func (s *StandardDeviation) Period() int              { return s.period }
func (s *StandardDeviation) String() string           { return fmt.Sprintf("SD(%d)", s.period) }

// MeanAbsoluteDeviation is the mean distance of the last period prices from their mean
type MeanAbsoluteDeviation struct {
	period int
	mad    *RollingMAD
}

// NewMeanAbsoluteDeviation creates a rolling mean absolute deviation
func NewMeanAbsoluteDeviation(period int) (*MeanAbsoluteDeviation, error) {
	if err := checkPeriod("MAD", period); err != nil {
		return nil, err
	}
	return &MeanAbsoluteDeviation{period: period, mad: NewRollingMAD(period)}, nil
}

// DefaultMeanAbsoluteDeviation returns MAD(14)
func DefaultMeanAbsoluteDeviation() *MeanAbsoluteDeviation {
	return must(NewMeanAbsoluteDeviation(14))
}

func (m *MeanAbsoluteDeviation) Update(x float64) float64 { return m.mad.Push(x) }
func (m *MeanAbsoluteDeviation) Value() float64           { return m.mad.Value() }
func (m *MeanAbsoluteDeviation) Reset()                   { m.mad.Reset() }
func (m *MeanAbsoluteDeviation) Period() int              { return m.period }
func (m *MeanAbsoluteDeviation) String() string           { return fmt.Sprintf("MAD(%d)", m.period) }
