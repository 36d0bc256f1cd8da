package ecb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/provider"
	"github.com/shopspring/decimal"
)

var (
	errDecodeToken       = errors.New("decoding of the markup failed")
	errAttributeNotValid = errors.New("attr is not valid")
	errNoRates           = errors.New("no daily rates in document")
)

const dateLayout = "2006-01-02"

// decodeFunc turns a response body into the newest EUR based day it lists
type decodeFunc func([]byte) (provider.Payload, error)

// latestDay keeps the rates of the newest day offered to it. Older days are ignored unread
type latestDay struct {
	date  time.Time
	rates map[label.Symbol]decimal.Decimal
}

// offer reports whether the rates of date should be added, dropping the rates held so far if it does
func (d *latestDay) offer(date time.Time) bool {
	if d.rates != nil && !date.After(d.date) {
		return false
	}

	d.date = date
	d.rates = make(map[label.Symbol]decimal.Decimal)

	return true
}

// add records one column of the held day. Codes outside ISO 4217 and EUR itself are skipped
func (d *latestDay) add(code, value string) error {
	sym, err := label.ParseISO(code)
	if err != nil || sym == label.EUR {
		return nil
	}

	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return nil
	}

	rate, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errAttributeNotValid, sym, err)
	}

	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s: %s", errAttributeNotValid, sym, rate)
	}

	d.rates[sym] = rate

	return nil
}

func (d *latestDay) payload() (provider.Payload, error) {
	if len(d.rates) == 0 {
		return provider.Payload{}, errNoRates
	}

	return provider.Payload{
		Base:  label.EUR,
		Date:  d.date.Format(dateLayout),
		Rates: d.rates,
	}, nil
}
