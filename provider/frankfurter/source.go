// Package frankfurter reads a JSON rate table of the shape {"base":"EUR","date":"2024-01-01","rates":{"USD":1.1}}.
// Rate values may be numbers or decimal strings.
package frankfurter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/provider"
	"github.com/robotomize/kawase/provider/httputil"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const hostname = "api.frankfurter.app"

var defaultLatestResource = url.URL{Scheme: "https", Host: hostname, Path: "/latest"}

var (
	errFieldNotFound = errors.New("field not found")
	errRateNotValid  = errors.New("rate is not valid")
)

var _ provider.Source = (*source)(nil)

// NewSource returns the source for the default endpoint
func NewSource(client *http.Client) *source {
	return NewSourceWithURL(client, defaultLatestResource)
}

// NewSourceWithURL returns the source for any endpoint serving the same schema
func NewSourceWithURL(client *http.Client, u url.URL) *source {
	return &source{
		latestURL:        u,
		SourceHTTPClient: httputil.NewHTTPClient(client),
	}
}

type source struct {
	latestURL url.URL
	httputil.SourceHTTPClient
}

func (s *source) FetchRates(ctx context.Context) (provider.Payload, error) {
	b, err := s.Get(ctx, s.latestURL)
	if err != nil {
		return provider.Payload{}, fmt.Errorf("fetching: %w", err)
	}

	payload, err := decode(b)
	if err != nil {
		return provider.Payload{}, &provider.RemoteError{
			Message: fmt.Sprintf("decode: %v", err),
			Err:     fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err),
		}
	}

	return payload, nil
}

func decode(b []byte) (provider.Payload, error) {
	var payload provider.Payload

	if !gjson.ValidBytes(b) {
		return payload, errors.New("invalid json")
	}

	doc := gjson.ParseBytes(b)

	base := doc.Get("base")
	if !base.Exists() {
		return payload, fmt.Errorf("%w: base", errFieldNotFound)
	}

	sym, err := label.Parse(base.String())
	if err != nil {
		return payload, fmt.Errorf("base: %w", err)
	}

	date := doc.Get("date")
	if !date.Exists() {
		return payload, fmt.Errorf("%w: date", errFieldNotFound)
	}

	rates := doc.Get("rates")
	if !rates.IsObject() {
		return payload, fmt.Errorf("%w: rates", errFieldNotFound)
	}

	payload.Base = sym
	payload.Date = date.String()
	payload.Rates = make(map[label.Symbol]decimal.Decimal)

	var iterErr error
	rates.ForEach(func(key, value gjson.Result) bool {
		code, err := label.Parse(key.String())
		if err != nil {
			iterErr = fmt.Errorf("rates: %w", err)
			return false
		}

		var raw string
		switch value.Type {
		case gjson.Number:
			raw = value.Raw
		case gjson.String:
			raw = strings.TrimSpace(value.Str)
		default:
			iterErr = fmt.Errorf("%w: %s: %s", errRateNotValid, code, value.Raw)
			return false
		}

		rate, err := decimal.NewFromString(raw)
		if err != nil {
			iterErr = fmt.Errorf("%w: %s: %v", errRateNotValid, code, err)
			return false
		}

		payload.Rates[code] = rate

		return true
	})

	if iterErr != nil {
		return provider.Payload{}, iterErr
	}

	return payload, nil
}
