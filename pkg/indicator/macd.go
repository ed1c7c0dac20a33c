package indicator

import "fmt"

// MACDOutput is one step of MACD or PPO
type MACDOutput struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD is fast EMA minus slow EMA, with an EMA signal line of that difference
type MACD struct {
	fast, slow, signal *EMA
	value              MACDOutput
}

// NewMACD creates a MACD; fast must be strictly less than slow
func NewMACD(fast, slow, signal int) (*MACD, error) {
	if err := checkFastSlow("MACD", fast, slow); err != nil {
		return nil, err
	}
	if err := checkPeriod("MACD signal", signal); err != nil {
		return nil, err
	}
	return &MACD{
		fast:   must(NewEMA(fast)),
		slow:   must(NewEMA(slow)),
		signal: must(NewEMA(signal)),
	}, nil
}

// DefaultMACD returns MACD(12,26,9)
func DefaultMACD() *MACD { return must(NewMACD(12, 26, 9)) }

func (m *MACD) Update(x float64) MACDOutput {
	line := m.fast.Update(x) - m.slow.Update(x)
	signal := m.signal.Update(line)
	m.value = MACDOutput{MACD: line, Signal: signal, Histogram: line - signal}
	return m.value
}

func (m *MACD) Value() MACDOutput { return m.value }

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.value = MACDOutput{}
}

// Period returns the slow period, which governs warm-up
func (m *MACD) Period() int { return m.slow.period }

func (m *MACD) String() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

// PPO is MACD expressed as a percentage of the slow EMA.
// The line is 0 while the slow EMA is 0.
type PPO struct {
	fast, slow, signal *EMA
	value              MACDOutput
}

// NewPPO creates a percentage price oscillator; fast must be strictly less than slow
func NewPPO(fast, slow, signal int) (*PPO, error) {
	if err := checkFastSlow("PPO", fast, slow); err != nil {
		return nil, err
	}
	if err := checkPeriod("PPO signal", signal); err != nil {
		return nil, err
	}
	return &PPO{
		fast:   must(NewEMA(fast)),
		slow:   must(NewEMA(slow)),
		signal: must(NewEMA(signal)),
	}, nil
}

// DefaultPPO returns PPO(12,26,9)
func DefaultPPO() *PPO { return must(NewPPO(12, 26, 9)) }

func (p *PPO) Update(x float64) MACDOutput {
	fast := p.fast.Update(x)
	slow := p.slow.Update(x)
	var line float64
	if slow != 0 {
		line = (fast - slow) / slow * 100
	}
	signal := p.signal.Update(line)
	p.value = MACDOutput{MACD: line, Signal: signal, Histogram: line - signal}
	return p.value
}

func (p *PPO) Value() MACDOutput { return p.value }

func (p *PPO) Reset() {
	p.fast.Reset()
	p.slow.Reset()
	p.signal.Reset()
	p.value = MACDOutput{}
}

func (p *PPO) Period() int { return p.slow.period }

func (p *PPO) String() string {
	return fmt.Sprintf("PPO(%d,%d,%d)", p.fast.period, p.slow.period, p.signal.period)
}
