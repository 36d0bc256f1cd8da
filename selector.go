package kawase

import (
	"fmt"

	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

// Places kept in every displayed or settled amount
const Places = 2

// Selection is the current sell/receive pair. ReceiveAmount is always derived from SellAmount
type Selection struct {
	Sell          label.Symbol
	Receive       label.Symbol
	SellAmount    decimal.Decimal
	ReceiveAmount decimal.Decimal
}

// Quote converts amount of sell into receive via the direct edge receive -> sell, rounded half away from zero
func Quote(t Table, sell, receive label.Symbol, amount decimal.Decimal) (decimal.Decimal, error) {
	node, ok := t.Find(receive)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCurrencyNotFound, receive)
	}

	edge, ok := node.ConversionMap[sell]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s", ErrNoRoute, sell, receive)
	}

	return amount.Mul(edge.Rate).Round(Places), nil
}

// DefaultSelection picks the lowest code with funds to sell, the lowest other code reachable from it to
// receive, and sells the whole balance
func DefaultSelection(t Table) (Selection, error) {
	sell, ok := defaultSell(t)
	if !ok {
		return Selection{}, ErrNoFunds
	}

	receive, ok := defaultReceive(t, sell.Currency)
	if !ok {
		return Selection{}, fmt.Errorf("%w: %s", ErrNoRoute, sell.Currency)
	}

	s := Selection{Sell: sell.Currency, Receive: receive, SellAmount: sell.Balance}

	return s.requote(t)
}

// ChangeSellAmount sets a new amount clamped to the sell balance. Negative amounts are rejected
func (s Selection) ChangeSellAmount(t Table, amount decimal.Decimal) (Selection, error) {
	if amount.IsNegative() {
		return s, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	sell, ok := t.Find(s.Sell)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrCurrencyNotFound, s.Sell)
	}

	s.SellAmount = decimal.Min(amount, sell.Balance)

	return s.requote(t)
}

// ChangeSellCurrency switches the sell side. The receive side is re-picked when it stops being reachable
func (s Selection) ChangeSellCurrency(t Table, sym label.Symbol) (Selection, error) {
	sell, ok := t.Find(sym)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrCurrencyNotFound, sym)
	}

	if !sell.Balance.IsPositive() {
		return s, fmt.Errorf("%w: %s", ErrNoFunds, sym)
	}

	next := s
	next.Sell = sym
	next.SellAmount = decimal.Min(s.SellAmount, sell.Balance)

	if !validReceive(t, sym, s.Receive) {
		receive, ok := defaultReceive(t, sym)
		if !ok {
			return s, fmt.Errorf("%w: %s", ErrNoRoute, sym)
		}
		next.Receive = receive
	}

	return next.requote(t)
}

// ChangeReceiveCurrency switches the receive side. It must differ from sell and hold an edge to it
func (s Selection) ChangeReceiveCurrency(t Table, sym label.Symbol) (Selection, error) {
	if _, ok := t.Find(sym); !ok {
		return s, fmt.Errorf("%w: %s", ErrCurrencyNotFound, sym)
	}

	if !validReceive(t, s.Sell, sym) {
		return s, fmt.Errorf("%w: %s -> %s", ErrNoRoute, s.Sell, sym)
	}

	next := s
	next.Receive = sym

	return next.requote(t)
}

// Revalidate carries the selection over to a new table: valid parts are kept, the rest re-picked by the
// default rules, and the amount clamped and re-quoted
func (s Selection) Revalidate(t Table) (Selection, error) {
	next := s

	sell, ok := t.Find(s.Sell)
	if !ok || !sell.Balance.IsPositive() {
		def, ok := defaultSell(t)
		if !ok {
			return Selection{}, ErrNoFunds
		}
		next.Sell = def.Currency
		next.SellAmount = def.Balance
		sell = def
	}

	if next.SellAmount.IsNegative() {
		next.SellAmount = decimal.Zero
	}
	next.SellAmount = decimal.Min(next.SellAmount, sell.Balance)

	if !validReceive(t, next.Sell, next.Receive) {
		receive, ok := defaultReceive(t, next.Sell)
		if !ok {
			return Selection{}, fmt.Errorf("%w: %s", ErrNoRoute, next.Sell)
		}
		next.Receive = receive
	}

	return next.requote(t)
}

func (s Selection) requote(t Table) (Selection, error) {
	amount, err := Quote(t, s.Sell, s.Receive, s.SellAmount)
	if err != nil {
		return Selection{}, err
	}

	s.ReceiveAmount = amount

	return s, nil
}

func defaultSell(t Table) (Rate, bool) {
	for _, r := range t {
		if r.Balance.IsPositive() {
			return r, true
		}
	}

	return Rate{}, false
}

func defaultReceive(t Table, sell label.Symbol) (label.Symbol, bool) {
	for _, r := range t {
		if validReceive(t, sell, r.Currency) {
			return r.Currency, true
		}
	}

	return "", false
}

func validReceive(t Table, sell, receive label.Symbol) bool {
	if receive == "" || receive == sell {
		return false
	}

	node, ok := t.Find(receive)
	if !ok {
		return false
	}

	_, ok = node.ConversionMap[sell]

	return ok
}
