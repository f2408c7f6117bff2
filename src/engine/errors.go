package engine

import (
	"errors"
	"fmt"
	"time"
)

// Sizing failures. These drop the candidate entry for the day and the run
// continues.
var (
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrNoVolumeData       = errors.New("average daily volume outside configured bounds")
	ErrDegenerateSize     = errors.New("computed quantity is zero")
	ErrOpenPositionExists = errors.New("symbol already has an open position")
)

// SizingError wraps one of the sizing sentinels with the symbol it applied to.
type SizingError struct {
	Symbol string
	Err    error
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("sizing %s: %v", e.Symbol, e.Err)
}

func (e *SizingError) Unwrap() error { return e.Err }

// DataQualityError marks a recoverable data problem: a missing bar, a
// delisted symbol, a too-short history window. It causes a skipped entry or
// a forced close, never a halted run.
type DataQualityError struct {
	Symbol string
	Date   time.Time
	Detail string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality %s on %s: %s", e.Symbol, e.Date.Format("2006-01-02"), e.Detail)
}

// InvariantViolation is fatal mid-run: the ledger is no longer trustworthy
// and the engine must abort rather than emit corrupted PnL.
type InvariantViolation struct {
	Date   time.Time
	Symbol string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on %s (%s): %s", e.Date.Format("2006-01-02"), e.Symbol, e.Detail)
}
