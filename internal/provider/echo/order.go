package echo

import (
	"strings"
	"unicode"

	"github.com/davidbz/barista/internal/domain"
)

//nolint:gochecknoglobals // Read-only keyword tables.
var (
	currencyWords = map[string]domain.Currency{
		"usd":     domain.CurrencyUSD,
		"dollar":  domain.CurrencyUSD,
		"dollars": domain.CurrencyUSD,
		"twd":     domain.CurrencyTWD,
		"ntd":     domain.CurrencyTWD,
		"nt":      domain.CurrencyTWD,
		"eur":     domain.CurrencyEUR,
		"euro":    domain.CurrencyEUR,
		"euros":   domain.CurrencyEUR,
		"jpy":     domain.CurrencyJPY,
		"yen":     domain.CurrencyJPY,
	}

	currencySymbols = map[string]domain.Currency{
		"nt$": domain.CurrencyTWD,
		"€":   domain.CurrencyEUR,
		"¥":   domain.CurrencyJPY,
	}

	icePhrases = []struct {
		phrase string
		level  domain.IceLevel
	}{
		{"no ice", domain.IceNone},
		{"no-ice", domain.IceNone},
		{"without ice", domain.IceNone},
		{"less ice", domain.IceLess},
		{"less-ice", domain.IceLess},
		{"light ice", domain.IceLess},
		{"extra ice", domain.IceExtra},
		{"extra-ice", domain.IceExtra},
		{"normal ice", domain.IceNormal},
	}
)

// parseOrder extracts a drink order from free text. It reports false when
// no drink is mentioned. Size, currency and ice level are left empty when
// the text does not name them.
func parseOrder(text string) (domain.PriceRequest, bool) {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var req domain.PriceRequest

	for _, word := range words {
		word = strings.TrimSuffix(word, "s")

		if req.DrinkType == "" && domain.DrinkType(word).Valid() {
			req.DrinkType = domain.DrinkType(word)
		}
		if req.Size == "" && domain.Size(word).Valid() {
			req.Size = domain.Size(word)
		}
	}

	if req.DrinkType == "" {
		return domain.PriceRequest{}, false
	}

	for _, word := range words {
		if currency, ok := currencyWords[word]; ok {
			req.Currency = currency
			break
		}
	}
	if req.Currency == "" {
		for symbol, currency := range currencySymbols {
			if strings.Contains(lower, symbol) {
				req.Currency = currency
				break
			}
		}
	}

	for _, ice := range icePhrases {
		if strings.Contains(lower, ice.phrase) {
			req.IceLevel = ice.level
			break
		}
	}

	return req, true
}
