package domain

import (
	"maps"

	"github.com/shopspring/decimal"
)

// MenuItem is the composite key of the base price table.
type MenuItem struct {
	Drink DrinkType
	Size  Size
}

// PriceTables holds the lookup tables used to price an order.
// A PriceTables value is never mutated after construction and may be shared
// freely between goroutines.
type PriceTables struct {
	basePrices    map[MenuItem]decimal.Decimal
	exchangeRates map[Currency]decimal.Decimal
	symbols       map[Currency]string
}

// NewPriceTables builds a table set from the given maps.
// The maps are copied so later changes by the caller are not observed.
func NewPriceTables(
	basePrices map[MenuItem]decimal.Decimal,
	exchangeRates map[Currency]decimal.Decimal,
	symbols map[Currency]string,
) *PriceTables {
	return &PriceTables{
		basePrices:    maps.Clone(basePrices),
		exchangeRates: maps.Clone(exchangeRates),
		symbols:       maps.Clone(symbols),
	}
}

// BasePrice returns the USD price of a menu item.
func (t *PriceTables) BasePrice(drink DrinkType, size Size) (decimal.Decimal, bool) {
	price, ok := t.basePrices[MenuItem{Drink: drink, Size: size}]
	return price, ok
}

// ExchangeRate returns the USD to currency multiplier.
func (t *PriceTables) ExchangeRate(currency Currency) (decimal.Decimal, bool) {
	rate, ok := t.exchangeRates[currency]
	return rate, ok
}

// Symbol returns the display symbol of a currency.
func (t *PriceTables) Symbol(currency Currency) (string, bool) {
	symbol, ok := t.symbols[currency]
	return symbol, ok
}

//nolint:gochecknoglobals // Immutable menu shared by every calculator.
var defaultPriceTables = NewPriceTables(
	map[MenuItem]decimal.Decimal{
		{DrinkCoffee, SizeSmall}:    decimal.RequireFromString("3.50"),
		{DrinkCoffee, SizeMedium}:   decimal.RequireFromString("4.50"),
		{DrinkCoffee, SizeLarge}:    decimal.RequireFromString("5.50"),
		{DrinkTea, SizeSmall}:       decimal.RequireFromString("3.00"),
		{DrinkTea, SizeMedium}:      decimal.RequireFromString("4.00"),
		{DrinkTea, SizeLarge}:       decimal.RequireFromString("5.00"),
		{DrinkSmoothie, SizeSmall}:  decimal.RequireFromString("5.00"),
		{DrinkSmoothie, SizeMedium}: decimal.RequireFromString("6.50"),
		{DrinkSmoothie, SizeLarge}:  decimal.RequireFromString("8.00"),
		{DrinkJuice, SizeSmall}:     decimal.RequireFromString("4.00"),
		{DrinkJuice, SizeMedium}:    decimal.RequireFromString("5.00"),
		{DrinkJuice, SizeLarge}:     decimal.RequireFromString("6.00"),
	},
	map[Currency]decimal.Decimal{
		CurrencyUSD: decimal.RequireFromString("1"),
		CurrencyTWD: decimal.RequireFromString("31.5"),
		CurrencyEUR: decimal.RequireFromString("0.92"),
		CurrencyJPY: decimal.RequireFromString("149.5"),
	},
	map[Currency]string{
		CurrencyUSD: "$",
		CurrencyTWD: "NT$",
		CurrencyEUR: "€",
		CurrencyJPY: "¥",
	},
)

// DefaultPriceTables returns the built-in menu.
func DefaultPriceTables() *PriceTables {
	return defaultPriceTables
}
