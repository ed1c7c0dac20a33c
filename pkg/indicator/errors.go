package indicator

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidPeriod is returned by constructors when a period is zero,
	// negative, or when a fast/slow pair is not strictly ordered.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidParameter is returned for non-period parameters out of range
	// (negative or NaN multipliers).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrSnapshotMismatch is returned when a snapshot does not describe the
	// indicator it is restored into.
	ErrSnapshotMismatch = errors.New("snapshot mismatch")
)

func checkPeriod(kind string, period int) error {
	if period < 1 {
		return fmt.Errorf("%w: %s period must be at least 1, got %d", ErrInvalidPeriod, kind, period)
	}
	return nil
}

func checkFastSlow(kind string, fast, slow int) error {
	if err := checkPeriod(kind+" fast", fast); err != nil {
		return err
	}
	if err := checkPeriod(kind+" slow", slow); err != nil {
		return err
	}
	if fast >= slow {
		return fmt.Errorf("%w: %s fast period %d must be less than slow period %d", ErrInvalidPeriod, kind, fast, slow)
	}
	return nil
}

func checkMultiplier(kind string, k float64) error {
	if math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
		return fmt.Errorf("%w: %s multiplier must be a non-negative number, got %v", ErrInvalidParameter, kind, k)
	}
	return nil
}
