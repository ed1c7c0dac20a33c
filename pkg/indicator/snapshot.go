package indicator

import "fmt"

// Snapshot is the plain-data state of an indicator. Kind carries the display
// name including parameters, so a snapshot only restores into an indicator
// configured the same way. Composite indicators nest their constituents in
// Children. Snapshots are not guaranteed to be portable across versions.
type Snapshot struct {
	Kind     string     `json:"kind"`
	Count    int        `json:"count,omitempty"`
	Scalars  []float64  `json:"scalars,omitempty"`
	Window   []float64  `json:"window,omitempty"`
	Children []Snapshot `json:"children,omitempty"`
}

// Snapshotter is implemented by every indicator in this package
type Snapshotter interface {
	Snapshot() Snapshot
	Restore(s Snapshot) error
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSnapshotMismatch}, args...)...)
}

func expectShape(s Snapshot, kind string, scalars, children int) error {
	if s.Kind != kind {
		return mismatch("kind %q, want %q", s.Kind, kind)
	}
	if len(s.Scalars) != scalars {
		return mismatch("%s has %d scalars, want %d", kind, len(s.Scalars), scalars)
	}
	if len(s.Children) != children {
		return mismatch("%s has %d children, want %d", kind, len(s.Children), children)
	}
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func restoreWindow(w *Window, values []float64) error {
	if len(values) > w.Cap() {
		return mismatch("window holds %d values, capacity %d", len(values), w.Cap())
	}
	w.Reset()
	for _, v := range values {
		w.Push(v)
	}
	return nil
}

func restoreChildren(s Snapshot, targets ...Snapshotter) error {
	for i, t := range targets {
		if err := t.Restore(s.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// primitives

func (s *smoother) Snapshot() Snapshot {
	return Snapshot{Kind: "smoother", Count: flag(s.seeded), Scalars: []float64{s.value}}
}

func (s *smoother) Restore(snap Snapshot) error {
	if err := expectShape(snap, "smoother", 1, 0); err != nil {
		return err
	}
	s.value, s.seeded = snap.Scalars[0], snap.Count == 1
	return nil
}

func (r *RollingSum) Snapshot() Snapshot {
	return Snapshot{Kind: "sum", Scalars: []float64{r.sum}, Window: r.win.Values()}
}

func (r *RollingSum) Restore(s Snapshot) error {
	if err := expectShape(s, "sum", 1, 0); err != nil {
		return err
	}
	if err := restoreWindow(r.win, s.Window); err != nil {
		return err
	}
	r.sum = s.Scalars[0]
	return nil
}

func (r *RollingExtremum) kind() string {
	if r.max {
		return "max"
	}
	return "min"
}

func (r *RollingExtremum) Snapshot() Snapshot {
	return Snapshot{Kind: r.kind(), Scalars: []float64{r.value}, Window: r.win.Values()}
}

func (r *RollingExtremum) Restore(s Snapshot) error {
	if err := expectShape(s, r.kind(), 1, 0); err != nil {
		return err
	}
	if err := restoreWindow(r.win, s.Window); err != nil {
		return err
	}
	r.value = s.Scalars[0]
	return nil
}

func (m *MonotonicExtremum) kind() string {
	if m.max {
		return "deque_max"
	}
	return "deque_min"
}

// Snapshot stores the deque front to back in Window and, in Scalars, how
// many pushes ago each retained value arrived
func (m *MonotonicExtremum) Snapshot() Snapshot {
	vals := make([]float64, m.size)
	ages := make([]float64, m.size)
	for i := range m.size {
		j := (m.head + i) % m.period
		vals[i] = m.vals[j]
		ages[i] = float64(m.seq - 1 - m.seqs[j])
	}
	return Snapshot{Kind: m.kind(), Count: m.count, Scalars: ages, Window: vals}
}

func (m *MonotonicExtremum) Restore(s Snapshot) error {
	if s.Kind != m.kind() {
		return mismatch("kind %q, want %q", s.Kind, m.kind())
	}
	if len(s.Window) != len(s.Scalars) || len(s.Window) > m.period || s.Count > m.period {
		return mismatch("%s deque of %d values does not fit period %d", s.Kind, len(s.Window), m.period)
	}
	for _, a := range s.Scalars {
		if age := int(a); age < 0 || age >= m.period {
			return mismatch("%s value age %d outside period %d", s.Kind, age, m.period)
		}
	}
	m.head, m.size, m.count = 0, len(s.Window), s.Count
	m.seq = m.period
	for i, v := range s.Window {
		m.vals[i] = v
		m.seqs[i] = m.seq - 1 - int(s.Scalars[i])
	}
	return nil
}

func (r *RollingStdDev) Snapshot() Snapshot {
	return Snapshot{Kind: "stddev", Scalars: []float64{r.mean, r.value}, Window: r.win.Values()}
}

func (r *RollingStdDev) Restore(s Snapshot) error {
	if err := expectShape(s, "stddev", 2, 0); err != nil {
		return err
	}
	if err := restoreWindow(r.win, s.Window); err != nil {
		return err
	}
	r.mean, r.value = s.Scalars[0], s.Scalars[1]
	return nil
}

func (r *RollingMAD) Snapshot() Snapshot {
	return Snapshot{Kind: "mad", Scalars: []float64{r.mean, r.value}, Window: r.win.Values()}
}

func (r *RollingMAD) Restore(s Snapshot) error {
	if err := expectShape(s, "mad", 2, 0); err != nil {
		return err
	}
	if err := restoreWindow(r.win, s.Window); err != nil {
		return err
	}
	r.mean, r.value = s.Scalars[0], s.Scalars[1]
	return nil
}

// primitive indicators

func (e *EMA) Snapshot() Snapshot {
	return Snapshot{Kind: e.String(), Children: []Snapshot{e.s.Snapshot()}}
}

func (e *EMA) Restore(s Snapshot) error {
	if err := expectShape(s, e.String(), 0, 1); err != nil {
		return err
	}
	return e.s.Restore(s.Children[0])
}

func (s *SMA) Snapshot() Snapshot {
	return Snapshot{Kind: s.String(), Scalars: []float64{s.value}, Children: []Snapshot{s.sum.Snapshot()}}
}

func (s *SMA) Restore(snap Snapshot) error {
	if err := expectShape(snap, s.String(), 1, 1); err != nil {
		return err
	}
	if err := s.sum.Restore(snap.Children[0]); err != nil {
		return err
	}
	s.value = snap.Scalars[0]
	return nil
}

func (m *Minimum[B]) Snapshot() Snapshot {
	return Snapshot{Kind: m.String(), Children: []Snapshot{m.ext.Snapshot()}}
}

func (m *Minimum[B]) Restore(s Snapshot) error {
	if err := expectShape(s, m.String(), 0, 1); err != nil {
		return err
	}
	return m.ext.Restore(s.Children[0])
}

func (m *Maximum[B]) Snapshot() Snapshot {
	return Snapshot{Kind: m.String(), Children: []Snapshot{m.ext.Snapshot()}}
}

func (m *Maximum[B]) Restore(s Snapshot) error {
	if err := expectShape(s, m.String(), 0, 1); err != nil {
		return err
	}
	return m.ext.Restore(s.Children[0])
}

func (s *StandardDeviation) Snapshot() Snapshot {
	return Snapshot{Kind: s.String(), Children: []Snapshot{s.sd.Snapshot()}}
}

func (s *StandardDeviation) Restore(snap Snapshot) error {
	if err := expectShape(snap, s.String(), 0, 1); err != nil {
		return err
	}
	return s.sd.Restore(snap.Children[0])
}

func (m *MeanAbsoluteDeviation) Snapshot() Snapshot {
	return Snapshot{Kind: m.String(), Children: []Snapshot{m.mad.Snapshot()}}
}

func (m *MeanAbsoluteDeviation) Restore(s Snapshot) error {
	if err := expectShape(s, m.String(), 0, 1); err != nil {
		return err
	}
	return m.mad.Restore(s.Children[0])
}

func (t *TrueRange[B]) Snapshot() Snapshot {
	return Snapshot{Kind: t.String(), Count: flag(t.seeded), Scalars: []float64{t.prevClose, t.value}}
}

func (t *TrueRange[B]) Restore(s Snapshot) error {
	if err := expectShape(s, t.String(), 2, 0); err != nil {
		return err
	}
	t.seeded = s.Count == 1
	t.prevClose, t.value = s.Scalars[0], s.Scalars[1]
	return nil
}

func (w *WEMA) Snapshot() Snapshot {
	return Snapshot{Kind: w.String(), Scalars: []float64{w.value}, Window: w.win.Values()}
}

func (w *WEMA) Restore(s Snapshot) error {
	if err := expectShape(s, w.String(), 1, 0); err != nil {
		return err
	}
	if err := restoreWindow(w.win, s.Window); err != nil {
		return err
	}
	w.value = s.Scalars[0]
	return nil
}

// composites

func (m *MACD) Snapshot() Snapshot {
	return Snapshot{
		Kind:     m.String(),
		Scalars:  []float64{m.value.MACD, m.value.Signal, m.value.Histogram},
		Children: []Snapshot{m.fast.Snapshot(), m.slow.Snapshot(), m.signal.Snapshot()},
	}
}

func (m *MACD) Restore(s Snapshot) error {
	if err := expectShape(s, m.String(), 3, 3); err != nil {
		return err
	}
	if err := restoreChildren(s, m.fast, m.slow, m.signal); err != nil {
		return err
	}
	m.value = MACDOutput{MACD: s.Scalars[0], Signal: s.Scalars[1], Histogram: s.Scalars[2]}
	return nil
}

func (p *PPO) Snapshot() Snapshot {
	return Snapshot{
		Kind:     p.String(),
		Scalars:  []float64{p.value.MACD, p.value.Signal, p.value.Histogram},
		Children: []Snapshot{p.fast.Snapshot(), p.slow.Snapshot(), p.signal.Snapshot()},
	}
}

func (p *PPO) Restore(s Snapshot) error {
	if err := expectShape(s, p.String(), 3, 3); err != nil {
		return err
	}
	if err := restoreChildren(s, p.fast, p.slow, p.signal); err != nil {
		return err
	}
	p.value = MACDOutput{MACD: s.Scalars[0], Signal: s.Scalars[1], Histogram: s.Scalars[2]}
	return nil
}

func bandsScalars(v BandsOutput) []float64 { return []float64{v.Average, v.Upper, v.Lower} }

func bandsFrom(xs []float64) BandsOutput {
	return BandsOutput{Average: xs[0], Upper: xs[1], Lower: xs[2]}
}

func (b *BollingerBands) Snapshot() Snapshot {
	return Snapshot{
		Kind:     b.String(),
		Scalars:  bandsScalars(b.value),
		Children: []Snapshot{b.sma.Snapshot(), b.sd.Snapshot()},
	}
}

func (b *BollingerBands) Restore(s Snapshot) error {
	if err := expectShape(s, b.String(), 3, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, b.sma, b.sd); err != nil {
		return err
	}
	b.value = bandsFrom(s.Scalars)
	return nil
}

func (k *KeltnerChannel[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     k.String(),
		Scalars:  bandsScalars(k.value),
		Children: []Snapshot{k.ema.Snapshot(), k.atr.Snapshot()},
	}
}

func (k *KeltnerChannel[B]) Restore(s Snapshot) error {
	if err := expectShape(s, k.String(), 3, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, k.ema, k.atr); err != nil {
		return err
	}
	k.value = bandsFrom(s.Scalars)
	return nil
}

func (a *ATR[B]) Snapshot() Snapshot {
	return Snapshot{Kind: a.String(), Children: []Snapshot{a.tr.Snapshot(), a.s.Snapshot()}}
}

func (a *ATR[B]) Restore(s Snapshot) error {
	if err := expectShape(s, a.String(), 0, 2); err != nil {
		return err
	}
	return restoreChildren(s, &a.tr, &a.s)
}

func (c *ChandelierExit[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     c.String(),
		Scalars:  []float64{c.value.Long, c.value.Short},
		Children: []Snapshot{c.atr.Snapshot(), c.high.Snapshot(), c.low.Snapshot()},
	}
}

func (c *ChandelierExit[B]) Restore(s Snapshot) error {
	if err := expectShape(s, c.String(), 2, 3); err != nil {
		return err
	}
	if err := restoreChildren(s, c.atr, c.high, c.low); err != nil {
		return err
	}
	c.value = ChandelierOutput{Long: s.Scalars[0], Short: s.Scalars[1]}
	return nil
}

func (f *FastStochastic[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     f.String(),
		Scalars:  []float64{f.value},
		Children: []Snapshot{f.high.Snapshot(), f.low.Snapshot()},
	}
}

func (f *FastStochastic[B]) Restore(s Snapshot) error {
	if err := expectShape(s, f.String(), 1, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, f.high, f.low); err != nil {
		return err
	}
	f.value = s.Scalars[0]
	return nil
}

func (st *SlowStochastic[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     st.String(),
		Scalars:  []float64{st.value.K, st.value.D},
		Children: []Snapshot{st.fast.Snapshot(), st.k.Snapshot(), st.d.Snapshot()},
	}
}

func (st *SlowStochastic[B]) Restore(s Snapshot) error {
	if err := expectShape(s, st.String(), 2, 3); err != nil {
		return err
	}
	if err := restoreChildren(s, st.fast, st.k, st.d); err != nil {
		return err
	}
	st.value = StochasticOutput{K: s.Scalars[0], D: s.Scalars[1]}
	return nil
}

func (r *RSI) Snapshot() Snapshot {
	return Snapshot{
		Kind:     r.String(),
		Count:    flag(r.hasPrev),
		Scalars:  []float64{r.prevClose, r.value},
		Children: []Snapshot{r.gain.Snapshot(), r.loss.Snapshot()},
	}
}

func (r *RSI) Restore(s Snapshot) error {
	if err := expectShape(s, r.String(), 2, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, &r.gain, &r.loss); err != nil {
		return err
	}
	r.hasPrev = s.Count == 1
	r.prevClose, r.value = s.Scalars[0], s.Scalars[1]
	return nil
}

func (c *CCI[B]) Snapshot() Snapshot {
	return Snapshot{Kind: c.String(), Scalars: []float64{c.value}, Children: []Snapshot{c.mad.Snapshot()}}
}

func (c *CCI[B]) Restore(s Snapshot) error {
	if err := expectShape(s, c.String(), 1, 1); err != nil {
		return err
	}
	if err := c.mad.Restore(s.Children[0]); err != nil {
		return err
	}
	c.value = s.Scalars[0]
	return nil
}

func (m *MFI[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     m.String(),
		Count:    flag(m.hasTP),
		Scalars:  []float64{m.prevTP, m.value},
		Children: []Snapshot{m.pos.Snapshot(), m.neg.Snapshot()},
	}
}

func (m *MFI[B]) Restore(s Snapshot) error {
	if err := expectShape(s, m.String(), 2, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, m.pos, m.neg); err != nil {
		return err
	}
	m.hasTP = s.Count == 1
	m.prevTP, m.value = s.Scalars[0], s.Scalars[1]
	return nil
}

func (r *ROC) Snapshot() Snapshot {
	return Snapshot{Kind: r.String(), Scalars: []float64{r.value}, Window: r.lag.Values()}
}

func (r *ROC) Restore(s Snapshot) error {
	if err := expectShape(s, r.String(), 1, 0); err != nil {
		return err
	}
	if err := restoreWindow(r.lag, s.Window); err != nil {
		return err
	}
	r.value = s.Scalars[0]
	return nil
}

func (o *OBV[B]) Snapshot() Snapshot {
	return Snapshot{Kind: o.String(), Count: flag(o.hasPrev), Scalars: []float64{o.prevClose, o.value}}
}

func (o *OBV[B]) Restore(s Snapshot) error {
	if err := expectShape(s, o.String(), 2, 0); err != nil {
		return err
	}
	o.hasPrev = s.Count == 1
	o.prevClose, o.value = s.Scalars[0], s.Scalars[1]
	return nil
}

// adapters and calculators delegate to what they wrap

func snapshotOf(v any) (Snapshot, error) {
	s, ok := v.(Snapshotter)
	if !ok {
		return Snapshot{}, mismatch("%v does not support snapshots", v)
	}
	return s.Snapshot(), nil
}

func restoreInto(v any, snap Snapshot) error {
	s, ok := v.(Snapshotter)
	if !ok {
		return mismatch("%v does not support snapshots", v)
	}
	return s.Restore(snap)
}

func (f *Field[B, O]) Snapshot() Snapshot {
	inner, _ := snapshotOf(f.inner)
	return Snapshot{Kind: f.String(), Children: []Snapshot{inner}}
}

func (f *Field[B, O]) Restore(s Snapshot) error {
	if err := expectShape(s, f.String(), 0, 1); err != nil {
		return err
	}
	return restoreInto(f.inner, s.Children[0])
}

func (c *Chained[In, O]) Snapshot() Snapshot {
	first, _ := snapshotOf(c.first)
	second, _ := snapshotOf(c.second)
	return Snapshot{Kind: c.String(), Children: []Snapshot{first, second}}
}

func (c *Chained[In, O]) Restore(s Snapshot) error {
	if err := expectShape(s, c.String(), 0, 2); err != nil {
		return err
	}
	if err := restoreInto(c.first, s.Children[0]); err != nil {
		return err
	}
	return restoreInto(c.second, s.Children[1])
}

func (c *calculator[O]) Snapshot() Snapshot {
	inner, _ := snapshotOf(c.ind)
	return Snapshot{Kind: c.name, Count: c.processed, Children: []Snapshot{inner}}
}

func (c *calculator[O]) Restore(s Snapshot) error {
	if err := expectShape(s, c.name, 0, 1); err != nil {
		return err
	}
	if err := restoreInto(c.ind, s.Children[0]); err != nil {
		return err
	}
	c.processed = s.Count
	return nil
}

func (v *VWAP[B]) Snapshot() Snapshot {
	return Snapshot{
		Kind:     v.String(),
		Scalars:  []float64{v.value},
		Children: []Snapshot{v.notional.Snapshot(), v.volume.Snapshot()},
	}
}

func (v *VWAP[B]) Restore(s Snapshot) error {
	if err := expectShape(s, v.String(), 1, 2); err != nil {
		return err
	}
	if err := restoreChildren(s, v.notional, v.volume); err != nil {
		return err
	}
	v.value = s.Scalars[0]
	return nil
}

func (r *RelativeVolume[B]) Snapshot() Snapshot {
	return Snapshot{Kind: r.String(), Scalars: []float64{r.value}, Children: []Snapshot{r.avg.Snapshot()}}
}

func (r *RelativeVolume[B]) Restore(s Snapshot) error {
	if err := expectShape(s, r.String(), 1, 1); err != nil {
		return err
	}
	if err := r.avg.Restore(s.Children[0]); err != nil {
		return err
	}
	r.value = s.Scalars[0]
	return nil
}
