package indicator

import (
	"fmt"
	"slices"

	indicatorpkg "github.com/mohamedkhairy/streamta/pkg/indicator"
)

// Bar is the observation type every registered calculator accepts
type Bar = indicatorpkg.Bar

// definition describes one registered indicator: how to build it, how many bars it
// needs before publishing, and how its output is flattened
type definition[O any] struct {
	name        string
	description string
	category    string
	params      map[string]interface{}
	window      int
	build       func() (indicatorpkg.Indicator[Bar, O], error)
	lines       indicatorpkg.LineFunc[O]
}

func register[O any](registry *IndicatorRegistry, d definition[O]) error {
	factory := func() (indicatorpkg.Calculator, error) {
		ind, err := d.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		return indicatorpkg.NewCalculator(d.name, ind, d.window, d.lines), nil
	}

	// Build one instance to validate parameters and describe the output
	calc, err := factory()
	if err != nil {
		return err
	}
	out := make(map[string]float64)
	calc.Lines(out)
	lines := make([]string, 0, len(out))
	for line := range out {
		lines = append(lines, line)
	}
	slices.Sort(lines)

	return registry.Register(d.name, factory, IndicatorMetadata{
		Display:     fmt.Sprint(calc),
		Description: d.description,
		Category:    d.category,
		Parameters:  d.params,
		Lines:       lines,
		WindowSize:  calc.WindowSize(),
	})
}

// onClose lifts a price indicator constructor to a bar indicator fed closing prices
func onClose[O any, I indicatorpkg.Indicator[float64, O]](build func() (I, error)) func() (indicatorpkg.Indicator[Bar, O], error) {
	return func() (indicatorpkg.Indicator[Bar, O], error) {
		ind, err := build()
		if err != nil {
			return nil, err
		}
		return indicatorpkg.OnClose[Bar, O](ind), nil
	}
}

// asBar widens a concrete bar indicator constructor
func asBar[O any, I indicatorpkg.Indicator[Bar, O]](build func() (I, error)) func() (indicatorpkg.Indicator[Bar, O], error) {
	return func() (indicatorpkg.Indicator[Bar, O], error) {
		ind, err := build()
		if err != nil {
			return nil, err
		}
		return ind, nil
	}
}

// RegisterAllIndicators registers every indicator the engine can compute
func RegisterAllIndicators(registry *IndicatorRegistry) error {
	if err := registerTrendIndicators(registry); err != nil {
		return err
	}
	if err := registerMomentumIndicators(registry); err != nil {
		return err
	}
	if err := registerVolatilityIndicators(registry); err != nil {
		return err
	}
	return registerVolumeIndicators(registry)
}

func registerTrendIndicators(registry *IndicatorRegistry) error {
	// EMA indicators
	for _, period := range []int{9, 12, 20, 21, 26, 50, 200} {
		if err := register(registry, definition[float64]{
			name:        fmt.Sprintf("ema_%d", period),
			description: fmt.Sprintf("Exponential Moving Average (%d period)", period),
			category:    "trend",
			params:      map[string]interface{}{"period": period},
			window:      period,
			build:       onClose[float64](func() (*indicatorpkg.EMA, error) { return indicatorpkg.NewEMA(period) }),
			lines:       indicatorpkg.ScalarLine,
		}); err != nil {
			return err
		}
	}

	// SMA indicators
	for _, period := range []int{10, 20, 50, 200} {
		if err := register(registry, definition[float64]{
			name:        fmt.Sprintf("sma_%d", period),
			description: fmt.Sprintf("Simple Moving Average (%d period)", period),
			category:    "trend",
			params:      map[string]interface{}{"period": period},
			window:      period,
			build:       onClose[float64](func() (*indicatorpkg.SMA, error) { return indicatorpkg.NewSMA(period) }),
			lines:       indicatorpkg.ScalarLine,
		}); err != nil {
			return err
		}
	}

	if err := register(registry, definition[float64]{
		name:        "wema_9",
		description: "Windowed Exponential Moving Average (9 period)",
		category:    "trend",
		params:      map[string]interface{}{"period": 9},
		window:      9,
		build:       onClose[float64](func() (*indicatorpkg.WEMA, error) { return indicatorpkg.NewWEMA(9) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	// MACD and PPO share parameters and layout
	macdParams := map[string]interface{}{"fast_period": 12, "slow_period": 26, "signal_period": 9}
	if err := register(registry, definition[indicatorpkg.MACDOutput]{
		name:        "macd_12_26_9",
		description: "MACD (12, 26, 9)",
		category:    "trend",
		params:      macdParams,
		window:      26 + 9 - 1,
		build:       onClose[indicatorpkg.MACDOutput](func() (*indicatorpkg.MACD, error) { return indicatorpkg.NewMACD(12, 26, 9) }),
		lines:       indicatorpkg.MACDLines,
	}); err != nil {
		return err
	}
	if err := register(registry, definition[indicatorpkg.MACDOutput]{
		name:        "ppo_12_26_9",
		description: "Percentage Price Oscillator (12, 26, 9)",
		category:    "trend",
		params:      macdParams,
		window:      26 + 9 - 1,
		build:       onClose[indicatorpkg.MACDOutput](func() (*indicatorpkg.PPO, error) { return indicatorpkg.NewPPO(12, 26, 9) }),
		lines:       indicatorpkg.MACDLines,
	}); err != nil {
		return err
	}

	// Rolling extremes
	if err := register(registry, definition[float64]{
		name:        "high_20",
		description: "Highest high (20 period)",
		category:    "price",
		params:      map[string]interface{}{"period": 20},
		window:      20,
		build:       asBar[float64](func() (*indicatorpkg.Maximum[Bar], error) { return indicatorpkg.NewMaximum[Bar](20) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}
	return register(registry, definition[float64]{
		name:        "low_20",
		description: "Lowest low (20 period)",
		category:    "price",
		params:      map[string]interface{}{"period": 20},
		window:      20,
		build:       asBar[float64](func() (*indicatorpkg.Minimum[Bar], error) { return indicatorpkg.NewMinimum[Bar](20) }),
		lines:       indicatorpkg.ScalarLine,
	})
}

func registerMomentumIndicators(registry *IndicatorRegistry) error {
	// RSI indicators
	for _, period := range []int{9, 14, 21} {
		if err := register(registry, definition[float64]{
			name:        fmt.Sprintf("rsi_%d", period),
			description: fmt.Sprintf("Relative Strength Index (%d period)", period),
			category:    "momentum",
			params:      map[string]interface{}{"period": period},
			window:      period + 1,
			build:       onClose[float64](func() (*indicatorpkg.RSI, error) { return indicatorpkg.NewRSI(period) }),
			lines:       indicatorpkg.ScalarLine,
		}); err != nil {
			return err
		}
	}

	if err := register(registry, definition[float64]{
		name:        "roc_9",
		description: "Rate of Change (9 period)",
		category:    "momentum",
		params:      map[string]interface{}{"period": 9},
		window:      9 + 1,
		build:       onClose[float64](func() (*indicatorpkg.ROC, error) { return indicatorpkg.NewROC(9) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[float64]{
		name:        "cci_20",
		description: "Commodity Channel Index (20 period)",
		category:    "momentum",
		params:      map[string]interface{}{"period": 20},
		window:      20,
		build:       asBar[float64](func() (*indicatorpkg.CCI[Bar], error) { return indicatorpkg.NewCCI[Bar](20) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[float64]{
		name:        "fstoch_14",
		description: "Fast Stochastic %K (14 period)",
		category:    "momentum",
		params:      map[string]interface{}{"period": 14},
		window:      14,
		build:       asBar[float64](func() (*indicatorpkg.FastStochastic[Bar], error) { return indicatorpkg.NewFastStochastic[Bar](14) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	return register(registry, definition[indicatorpkg.StochasticOutput]{
		name:        "stoch_14_3_3",
		description: "Slow Stochastic Oscillator (14, 3, 3)",
		category:    "momentum",
		params:      map[string]interface{}{"k_period": 14, "smooth_k": 3, "d_period": 3},
		window:      14 + 3 + 3 - 2,
		build: asBar[indicatorpkg.StochasticOutput](func() (*indicatorpkg.SlowStochastic[Bar], error) {
			return indicatorpkg.NewSlowStochastic[Bar](14, 3, 3)
		}),
		lines: indicatorpkg.StochasticLines,
	})
}

func registerVolatilityIndicators(registry *IndicatorRegistry) error {
	if err := register(registry, definition[float64]{
		name:        "true_range",
		description: "True Range",
		category:    "volatility",
		window:      2,
		build: asBar[float64](func() (*indicatorpkg.TrueRange[Bar], error) {
			return indicatorpkg.NewTrueRange[Bar](), nil
		}),
		lines: indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[float64]{
		name:        "atr_14",
		description: "Average True Range (14 period)",
		category:    "volatility",
		params:      map[string]interface{}{"period": 14},
		window:      14,
		build:       asBar[float64](func() (*indicatorpkg.ATR[Bar], error) { return indicatorpkg.NewATR[Bar](14) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[float64]{
		name:        "sd_20",
		description: "Standard Deviation of closes (20 period)",
		category:    "volatility",
		params:      map[string]interface{}{"period": 20},
		window:      20,
		build:       onClose[float64](func() (*indicatorpkg.StandardDeviation, error) { return indicatorpkg.NewStandardDeviation(20) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[indicatorpkg.BandsOutput]{
		name:        "bb_20_2",
		description: "Bollinger Bands (20 period, 2 std dev)",
		category:    "volatility",
		params:      map[string]interface{}{"period": 20, "multiplier": 2.0},
		window:      20,
		build: onClose[indicatorpkg.BandsOutput](func() (*indicatorpkg.BollingerBands, error) {
			return indicatorpkg.NewBollingerBands(20, 2)
		}),
		lines: indicatorpkg.BandsLines,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[indicatorpkg.BandsOutput]{
		name:        "kc_10_2",
		description: "Keltner Channel (10 period, 2 ATR)",
		category:    "volatility",
		params:      map[string]interface{}{"period": 10, "multiplier": 2.0},
		window:      10,
		build: asBar[indicatorpkg.BandsOutput](func() (*indicatorpkg.KeltnerChannel[Bar], error) {
			return indicatorpkg.NewKeltnerChannel[Bar](10, 2)
		}),
		lines: indicatorpkg.BandsLines,
	}); err != nil {
		return err
	}

	return register(registry, definition[indicatorpkg.ChandelierOutput]{
		name:        "ce_22_3",
		description: "Chandelier Exit (22 period, 3 ATR)",
		category:    "volatility",
		params:      map[string]interface{}{"period": 22, "multiplier": 3.0},
		window:      22,
		build: asBar[indicatorpkg.ChandelierOutput](func() (*indicatorpkg.ChandelierExit[Bar], error) {
			return indicatorpkg.NewChandelierExit[Bar](22, 3)
		}),
		lines: indicatorpkg.ChandelierLines,
	})
}

func registerVolumeIndicators(registry *IndicatorRegistry) error {
	if err := register(registry, definition[float64]{
		name:        "obv",
		description: "On Balance Volume",
		category:    "volume",
		window:      1,
		build: asBar[float64](func() (*indicatorpkg.OBV[Bar], error) {
			return indicatorpkg.NewOBV[Bar](), nil
		}),
		lines: indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	if err := register(registry, definition[float64]{
		name:        "mfi_14",
		description: "Money Flow Index (14 period)",
		category:    "volume",
		params:      map[string]interface{}{"period": 14},
		window:      14 + 1,
		build:       asBar[float64](func() (*indicatorpkg.MFI[Bar], error) { return indicatorpkg.NewMFI[Bar](14) }),
		lines:       indicatorpkg.ScalarLine,
	}); err != nil {
		return err
	}

	// VWAP and relative volume over 1-minute bars: 5m, 15m and 1h windows
	for _, bars := range []int{5, 15, 60} {
		if err := register(registry, definition[float64]{
			name:        fmt.Sprintf("vwap_%d", bars),
			description: fmt.Sprintf("Volume Weighted Average Price (%d bars)", bars),
			category:    "price",
			params:      map[string]interface{}{"period": bars},
			window:      bars,
			build:       asBar[float64](func() (*indicatorpkg.VWAP[Bar], error) { return indicatorpkg.NewVWAP[Bar](bars) }),
			lines:       indicatorpkg.ScalarLine,
		}); err != nil {
			return err
		}
	}

	for _, bars := range []int{5, 15} {
		if err := register(registry, definition[float64]{
			name:        fmt.Sprintf("rvol_%d", bars),
			description: fmt.Sprintf("Relative Volume (vs previous %d bars)", bars),
			category:    "volume",
			params:      map[string]interface{}{"period": bars},
			window:      bars + 1,
			build: asBar[float64](func() (*indicatorpkg.RelativeVolume[Bar], error) {
				return indicatorpkg.NewRelativeVolume[Bar](bars)
			}),
			lines: indicatorpkg.ScalarLine,
		}); err != nil {
			return err
		}
	}

	return nil
}
