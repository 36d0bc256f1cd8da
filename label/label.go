// Package label holds currency symbols known to kawase.
package label

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

var ErrSymbolNotValid = errors.New("currency symbol is not valid")

// Symbol is an uppercase currency code, e.g. EUR or BTC
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

const (
	AED Symbol = "AED"
	ARS Symbol = "ARS"
	AUD Symbol = "AUD"
	BGN Symbol = "BGN"
	BND Symbol = "BND"
	BRL Symbol = "BRL"
	CAD Symbol = "CAD"
	CHF Symbol = "CHF"
	CLP Symbol = "CLP"
	CNY Symbol = "CNY"
	COP Symbol = "COP"
	CZK Symbol = "CZK"
	DKK Symbol = "DKK"
	DZD Symbol = "DZD"
	EUR Symbol = "EUR"
	GBP Symbol = "GBP"
	HKD Symbol = "HKD"
	HUF Symbol = "HUF"
	IDR Symbol = "IDR"
	ILS Symbol = "ILS"
	INR Symbol = "INR"
	ISK Symbol = "ISK"
	JPY Symbol = "JPY"
	KRW Symbol = "KRW"
	KWD Symbol = "KWD"
	MAD Symbol = "MAD"
	MXN Symbol = "MXN"
	MYR Symbol = "MYR"
	NGN Symbol = "NGN"
	NOK Symbol = "NOK"
	NZD Symbol = "NZD"
	OMR Symbol = "OMR"
	PHP Symbol = "PHP"
	PLN Symbol = "PLN"
	RON Symbol = "RON"
	RSD Symbol = "RSD"
	SAR Symbol = "SAR"
	SDG Symbol = "SDG"
	SEK Symbol = "SEK"
	SGD Symbol = "SGD"
	THB Symbol = "THB"
	TND Symbol = "TND"
	TRY Symbol = "TRY"
	USD Symbol = "USD"
	ZAR Symbol = "ZAR"
	ZMW Symbol = "ZMW"
)

// Names maps English currency names, as central banks print them, to symbols
var Names = map[string]Symbol{
	"UAE Dirham":         AED,
	"US Dollar":          USD,
	"Argentine Peso":     ARS,
	"Australian Dollar":  AUD,
	"Bulgarian Lev":      BGN,
	"Brunei Dollar":      BND,
	"Brazilian Real":     BRL,
	"Canadian Dollar":    CAD,
	"Swiss Franc":        CHF,
	"Chilean Peso":       CLP,
	"Chinese Yuan":       CNY,
	"Colombian Peso":     COP,
	"Czech Koruna":       CZK,
	"Danish Krone":       DKK,
	"Algerian Dinar":     DZD,
	"Euro":               EUR,
	"British Pound":      GBP,
	"Hong Kong Dollar":   HKD,
	"Hungarian Forint":   HUF,
	"Indonesian Rupiah":  IDR,
	"Israeli Shekel":     ILS,
	"Indian Rupee":       INR,
	"Icelandic Krona":    ISK,
	"Japanese Yen":       JPY,
	"South Korean Won":   KRW,
	"Kuwaiti Dinar":      KWD,
	"Moroccan Dirham":    MAD,
	"Mexican Peso":       MXN,
	"Malaysian Ringgit":  MYR,
	"Nigerian Naira":     NGN,
	"Norwegian Krone":    NOK,
	"New Zealand Dollar": NZD,
	"Omani Rial":         OMR,
	"Philippine Peso":    PHP,
	"Polish Zloty":       PLN,
	"Romanian Leu":       RON,
	"Serbian Dinar":      RSD,
	"Saudi Riyal":        SAR,
	"Sudanese Pound":     SDG,
	"Swedish Krona":      SEK,
	"Singapore Dollar":   SGD,
	"Thai Baht":          THB,
	"Tunisian Dinar":     TND,
	"Turkish Lira":       TRY,
	"South African Rand": ZAR,
	"Zambian Kwacha":     ZMW,
}

// Parse normalizes s into a three character code of uppercase letters and digits. Codes outside
// ISO 4217, such as BTC, are accepted
func Parse(s string) (Symbol, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrSymbolNotValid, s)
	}

	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrSymbolNotValid, s)
		}
	}

	return Symbol(code), nil
}

// ParseISO is like Parse but also requires the code to be in the ISO 4217 registry
func ParseISO(s string) (Symbol, error) {
	sym, err := Parse(s)
	if err != nil {
		return "", err
	}

	if _, err := currency.ParseISO(sym.String()); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrSymbolNotValid, s, err)
	}

	return sym, nil
}

// MustParse is like Parse but panics on an invalid symbol
func MustParse(s string) Symbol {
	sym, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return sym
}
