package kawase

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Settlement is the outcome of a committed conversion
type Settlement struct {
	Table Table
	// Debited and Credited are the two nodes whose balances changed
	Debited  Rate
	Credited Rate
	Message  string
	// Next is nil when no selection can be made on the new table, Notice then says why
	Next   *Selection
	Notice error
}

// Settle moves SellAmount out of the sell node and ReceiveAmount into the receive node on a copy of t.
// Balances that round to zero are stored as exactly zero
func Settle(t Table, s Selection) (Settlement, error) {
	if !s.SellAmount.IsPositive() {
		return Settlement{}, ErrNothingToSettle
	}

	if s.Sell == s.Receive {
		return Settlement{}, &InvariantViolation{Op: "settle", Reason: fmt.Sprintf("sell and receive are both %s", s.Sell)}
	}

	sellIdx, ok := t.index(s.Sell)
	if !ok {
		return Settlement{}, &InvariantViolation{Op: "settle", Reason: fmt.Sprintf("sell node %s is missing", s.Sell)}
	}

	receiveIdx, ok := t.index(s.Receive)
	if !ok {
		return Settlement{}, &InvariantViolation{Op: "settle", Reason: fmt.Sprintf("receive node %s is missing", s.Receive)}
	}

	if _, ok := t[receiveIdx].ConversionMap[s.Sell]; !ok {
		return Settlement{}, &InvariantViolation{
			Op:     "settle",
			Reason: fmt.Sprintf("no edge %s -> %s", s.Sell, s.Receive),
		}
	}

	if s.SellAmount.GreaterThan(t[sellIdx].Balance) {
		return Settlement{}, &InvariantViolation{
			Op:     "settle",
			Reason: fmt.Sprintf("sell amount %s exceeds %s balance %s", s.SellAmount, s.Sell, t[sellIdx].Balance),
		}
	}

	next := t.Clone()
	next[sellIdx].Balance = normalize(next[sellIdx].Balance.Sub(s.SellAmount))
	next[receiveIdx].Balance = normalize(next[receiveIdx].Balance.Add(s.ReceiveAmount))

	res := Settlement{
		Table:    next,
		Debited:  next[sellIdx],
		Credited: next[receiveIdx],
		Message: fmt.Sprintf(
			"You have converted %s %s to %s %s.",
			s.SellAmount.StringFixed(Places), s.Sell, s.ReceiveAmount.StringFixed(Places), s.Receive,
		),
	}

	sel, err := reselect(next, s)
	if err != nil {
		if errors.Is(err, ErrNoFunds) || errors.Is(err, ErrNoRoute) {
			res.Notice = err
			return res, nil
		}

		return Settlement{}, err
	}
	res.Next = &sel

	return res, nil
}

// reselect picks the lowest code with funds as the next sell side. The previous amount carries over, clamped,
// only while the sell currency stays the same
func reselect(t Table, prev Selection) (Selection, error) {
	sell, ok := defaultSell(t)
	if !ok {
		return Selection{}, ErrNoFunds
	}

	next := Selection{Sell: sell.Currency, Receive: prev.Receive, SellAmount: sell.Balance}
	if sell.Currency == prev.Sell {
		next.SellAmount = decimal.Min(prev.SellAmount, sell.Balance)
	}

	return next.Revalidate(t)
}

func normalize(d decimal.Decimal) decimal.Decimal {
	if d.Round(Places).IsZero() {
		return decimal.Zero
	}

	return d
}
