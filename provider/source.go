package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

var (
	// ErrConnectivityAbsent means there is no route to the remote source at all
	ErrConnectivityAbsent = errors.New("no internet connection")
	// ErrMalformedPayload means the source answered but the body is not a rate table
	ErrMalformedPayload = errors.New("malformed rate payload")
)

// Source is an interface for getting a rate table from an external source. Source takes care of receiving data
// and returning it relative to a single base currency
//
//go:generate mockgen -source source.go -destination mock_source.go -package provider
type Source interface {
	// FetchRates returns the latest base-relative rate table
	FetchRates(ctx context.Context) (Payload, error)
}

// Payload is a fetched rate table. Rates[code] is the amount of code received for one unit of Base
type Payload struct {
	Base  label.Symbol                     `json:"base"`
	Date  string                           `json:"date"`
	Rates map[label.Symbol]decimal.Decimal `json:"rates"`
}

// RemoteError is a non-2xx answer or a body that could not be decoded
type RemoteError struct {
	Code    int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("remote: %s", e.Message)
	}

	return fmt.Sprintf("remote: http %d: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// TransportError is any other failure on the way to the source
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
