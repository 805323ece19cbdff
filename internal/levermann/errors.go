package levermann

import (
	"errors"
	"fmt"

	"StockSentinel/internal/model"
)

var (
	// ErrUnsupportedCap means no reference index exists for the stock's cap tier.
	ErrUnsupportedCap = errors.New("unsupported cap type")
	// ErrNoQuoteProvider means an engine was built without market data.
	ErrNoQuoteProvider = errors.New("no quote provider")

	ErrMissingData      = errors.New("missing data")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrInvalidValue     = errors.New("invalid value")
	ErrUnknownConsensus = errors.New("unknown consensus grade")
)

// ConfigurationError is returned when an engine cannot be built for a stock.
type ConfigurationError struct {
	ISIN    string
	CapType model.CapType
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("levermann: stock %s (cap %s): %v", e.ISIN, e.CapType, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CriterionError records why a single criterion could not be computed.
type CriterionError struct {
	Criterion string
	Err       error
}

func (e *CriterionError) Error() string {
	return fmt.Sprintf("criterion %s: %v", e.Criterion, e.Err)
}

func (e *CriterionError) Unwrap() error { return e.Err }

func missing(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMissingData, fmt.Sprintf(format, args...))
}
