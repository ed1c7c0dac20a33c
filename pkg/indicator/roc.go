package indicator

import "fmt"

// ROC is the Rate of Change: (close - close[period ago]) / close[period ago] * 100.
// It is 0 until period+1 prices have been fed, and while the lagged price is 0.
type ROC struct {
	period int
	lag    *Window
	value  float64
}

// NewROC creates a Rate of Change
func NewROC(period int) (*ROC, error) {
	if err := checkPeriod("ROC", period); err != nil {
		return nil, err
	}
	return &ROC{period: period, lag: NewWindow(period + 1)}, nil
}

// DefaultROC returns ROC(9)
func DefaultROC() *ROC { return must(NewROC(9)) }

func (r *ROC) Update(x float64) float64 {
	r.lag.Push(x)
	r.value = 0
	if r.lag.IsFull() {
		if old := r.lag.Oldest(); old != 0 {
			r.value = (x - old) / old * 100
		}
	}
	return r.value
}

func (r *ROC) Value() float64 { return r.value }

func (r *ROC) Reset() {
	r.lag.Reset()
	r.value = 0
}

func (r *ROC) Period() int    { return r.period }
func (r *ROC) String() string { return fmt.Sprintf("ROC(%d)", r.period) }
