package session

import (
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

// Event is an input to the controller. Events are processed one at a time in arrival order
type Event interface {
	event()
}

// RequestRates fetches, merges and shows the rate table
type RequestRates struct{}

// RefreshTick is the periodic refresh, enqueued by the controller itself
type RefreshTick struct{}

type ChangeSellAmount struct {
	Amount decimal.Decimal
}

type ChangeSellCurrency struct {
	Currency label.Symbol
}

type ChangeReceiveCurrency struct {
	Currency label.Symbol
}

// Settle commits the current selection
type Settle struct{}

func (RequestRates) event()          {}
func (RefreshTick) event()           {}
func (ChangeSellAmount) event()      {}
func (ChangeSellCurrency) event()    {}
func (ChangeReceiveCurrency) event() {}
func (Settle) event()                {}
