package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const priceDecimals = 2

var (
	// ErrInvalidOrder is returned when an order field is outside its enumeration.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrPriceUnavailable is returned when the lookup tables have no entry for an order.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// PriceQuote is the successful outcome of pricing an order.
type PriceQuote struct {
	Drink    DrinkType       `json:"drink"`
	Size     Size            `json:"size"`
	Currency Currency        `json:"currency"`
	IceLevel IceLevel        `json:"ice_level"`
	Price    string          `json:"price"`
	Message  string          `json:"message"`
	Amount   decimal.Decimal `json:"-"`
}

// PriceResult is either a quote or a failure, never both.
type PriceResult struct {
	quote *PriceQuote
	err   error
}

// QuoteResult wraps a successful quote.
func QuoteResult(q PriceQuote) PriceResult {
	return PriceResult{quote: &q, err: nil}
}

// FailureResult wraps a pricing failure. A nil err is replaced by a generic one
// so that a failure always carries a diagnostic.
func FailureResult(err error) PriceResult {
	if err == nil {
		err = errors.New("unknown pricing failure")
	}
	return PriceResult{quote: nil, err: err}
}

// OK reports whether the result holds a quote.
func (r PriceResult) OK() bool {
	return r.quote != nil
}

// Quote returns the quote and true on success.
func (r PriceResult) Quote() (PriceQuote, bool) {
	if r.quote == nil {
		return PriceQuote{}, false
	}
	return *r.quote, true
}

// Err returns the failure, or nil on success.
func (r PriceResult) Err() error {
	return r.err
}

// PriceCalculator prices drink orders from a fixed set of tables.
// It holds no mutable state; one instance may serve any number of goroutines.
type PriceCalculator struct {
	tables *PriceTables
}

// NewPriceCalculator creates a calculator over the given tables.
func NewPriceCalculator(tables *PriceTables) *PriceCalculator {
	return &PriceCalculator{
		tables: tables,
	}
}

// NewDefaultPriceCalculator creates a calculator over the built-in menu (DI constructor).
func NewDefaultPriceCalculator() *PriceCalculator {
	return NewPriceCalculator(DefaultPriceTables())
}

// Calculate prices one order. It never panics: every failure, including an
// incomplete table, is reported through the failure variant.
func (c *PriceCalculator) Calculate(req PriceRequest) PriceResult {
	if err := req.Validate(); err != nil {
		return FailureResult(fmt.Errorf("%w: %w", ErrInvalidOrder, err))
	}

	if c == nil || c.tables == nil {
		return FailureResult(fmt.Errorf("%w: no price tables configured", ErrPriceUnavailable))
	}

	req = req.WithDefaults()

	basePrice, ok := c.tables.BasePrice(req.DrinkType, req.Size)
	if !ok {
		return FailureResult(fmt.Errorf("%w: no base price for %s %s", ErrPriceUnavailable, req.Size, req.DrinkType))
	}

	rate, ok := c.tables.ExchangeRate(req.Currency)
	if !ok {
		return FailureResult(fmt.Errorf("%w: no exchange rate for %s", ErrPriceUnavailable, req.Currency))
	}

	symbol, ok := c.tables.Symbol(req.Currency)
	if !ok {
		return FailureResult(fmt.Errorf("%w: no currency symbol for %s", ErrPriceUnavailable, req.Currency))
	}

	amount := RoundPrice(basePrice.Mul(rate))
	if amount.IsNegative() {
		return FailureResult(fmt.Errorf("%w: negative price %s for %s %s in %s",
			ErrPriceUnavailable, amount.StringFixed(priceDecimals), req.Size, req.DrinkType, req.Currency))
	}

	price := FormatPrice(symbol, amount)

	return QuoteResult(PriceQuote{
		Drink:    req.DrinkType,
		Size:     req.Size,
		Currency: req.Currency,
		IceLevel: req.IceLevel,
		Price:    price,
		Message:  fmt.Sprintf("Your %s %s costs %s %s", req.Size, req.DrinkType, price, req.Currency),
		Amount:   amount,
	})
}

// RoundPrice rounds to two decimals, half away from zero (0.005 -> 0.01).
func RoundPrice(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(priceDecimals)
}

// FormatPrice renders an amount with its currency symbol and exactly two decimals.
func FormatPrice(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(priceDecimals)
}
