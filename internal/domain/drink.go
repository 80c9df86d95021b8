package domain

import (
	"fmt"
	"slices"
)

// DrinkType identifies a drink on the menu.
type DrinkType string

// Size identifies a cup size.
type Size string

// Currency is an ISO-4217 style currency code.
type Currency string

// IceLevel is the requested amount of ice. It is informational only.
type IceLevel string

const (
	DrinkCoffee   DrinkType = "coffee"
	DrinkTea      DrinkType = "tea"
	DrinkSmoothie DrinkType = "smoothie"
	DrinkJuice    DrinkType = "juice"
)

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

const (
	CurrencyUSD Currency = "USD"
	CurrencyTWD Currency = "TWD"
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
)

const (
	IceNone   IceLevel = "no-ice"
	IceLess   IceLevel = "less-ice"
	IceNormal IceLevel = "normal"
	IceExtra  IceLevel = "extra-ice"
)

// DefaultCurrency is applied when a request omits the currency.
const DefaultCurrency = CurrencyUSD

// DefaultIceLevel is applied when a request omits the ice level.
const DefaultIceLevel = IceNormal

// DrinkTypes returns the drink menu in display order.
func DrinkTypes() []DrinkType {
	return []DrinkType{DrinkCoffee, DrinkTea, DrinkSmoothie, DrinkJuice}
}

// Sizes returns the cup sizes in display order.
func Sizes() []Size {
	return []Size{SizeSmall, SizeMedium, SizeLarge}
}

// Currencies returns the supported currencies in display order.
func Currencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyTWD, CurrencyEUR, CurrencyJPY}
}

// IceLevels returns the ice levels in display order.
func IceLevels() []IceLevel {
	return []IceLevel{IceNone, IceLess, IceNormal, IceExtra}
}

// Valid reports whether d is on the menu.
func (d DrinkType) Valid() bool {
	return slices.Contains(DrinkTypes(), d)
}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	return slices.Contains(Sizes(), s)
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return slices.Contains(Currencies(), c)
}

// Valid reports whether l is a known ice level.
func (l IceLevel) Valid() bool {
	return slices.Contains(IceLevels(), l)
}

// PriceRequest is a single drink order to be priced.
// Currency and IceLevel may be left empty to take their defaults.
type PriceRequest struct {
	DrinkType DrinkType `json:"drink_type"`
	Size      Size      `json:"size"`
	Currency  Currency  `json:"currency,omitempty"`
	IceLevel  IceLevel  `json:"ice_level,omitempty"`
}

// WithDefaults returns a copy of r with optional fields filled in.
func (r PriceRequest) WithDefaults() PriceRequest {
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.IceLevel == "" {
		r.IceLevel = DefaultIceLevel
	}
	return r
}

// Validate checks every field against its enumeration.
// Empty optional fields are accepted.
func (r PriceRequest) Validate() error {
	if r.DrinkType == "" {
		return fmt.Errorf("drink_type is required (one of %v)", DrinkTypes())
	}
	if !r.DrinkType.Valid() {
		return fmt.Errorf("invalid drink_type %q (one of %v)", r.DrinkType, DrinkTypes())
	}
	if r.Size == "" {
		return fmt.Errorf("size is required (one of %v)", Sizes())
	}
	if !r.Size.Valid() {
		return fmt.Errorf("invalid size %q (one of %v)", r.Size, Sizes())
	}
	if r.Currency != "" && !r.Currency.Valid() {
		return fmt.Errorf("invalid currency %q (one of %v)", r.Currency, Currencies())
	}
	if r.IceLevel != "" && !r.IceLevel.Valid() {
		return fmt.Errorf("invalid ice_level %q (one of %v)", r.IceLevel, IceLevels())
	}
	return nil
}
