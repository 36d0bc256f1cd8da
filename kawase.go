// Package kawase maintains a multi-currency rate graph built from base-relative rate tables and settles
// balances between any two connected currencies.
//
// A Table is an immutable snapshot: Merge and Settle never touch their input and always return a fresh Table,
// so a snapshot handed to a reader stays valid while the owner builds the next one.
package kawase

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

var (
	ErrInvariantViolation = errors.New("invariant violation")
	ErrCurrencyNotFound   = errors.New("currency is not in the rate table")
	ErrNoFunds            = errors.New("no currency with a positive balance")
	ErrNoRoute            = errors.New("no conversion route to the sell currency")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrNothingToSettle    = errors.New("nothing to settle")
)

// nodeNamespace seeds the stable node identifiers: the same currency always gets the same ID
var nodeNamespace = uuid.MustParse("6f1c8a3e-4b0a-4f5e-9d43-2b8f0d1c7a55")

// InvariantViolation is a programmer-facing condition that must never be swallowed
type InvariantViolation struct {
	Op     string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariantViolation, e.Op, e.Reason)
}

func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}

// ConversionValue is an edge weight. On node N, ConversionMap[X] holds how many units of N one unit of X buys
type ConversionValue struct {
	Rate decimal.Decimal `json:"value"`
	AsOf string          `json:"date"`
}

// Rate is a currency node: its direct conversion edges and the balance held in it
type Rate struct {
	ID            uuid.UUID                        `json:"id"`
	Currency      label.Symbol                     `json:"currency"`
	ConversionMap map[label.Symbol]ConversionValue `json:"conversion_map"`
	Balance       decimal.Decimal                  `json:"amount"`
}

// NodeID returns the stable identifier of a currency node
func NodeID(sym label.Symbol) uuid.UUID {
	return uuid.NewSHA1(nodeNamespace, []byte(sym))
}

// NewRate returns an empty node for sym
func NewRate(sym label.Symbol) Rate {
	return Rate{
		ID:            NodeID(sym),
		Currency:      sym,
		ConversionMap: make(map[label.Symbol]ConversionValue),
		Balance:       decimal.Zero,
	}
}

// Clone returns a deep copy of the node
func (r Rate) Clone() Rate {
	cp := r
	cp.ConversionMap = make(map[label.Symbol]ConversionValue, len(r.ConversionMap))
	for sym, v := range r.ConversionMap {
		cp.ConversionMap[sym] = v
	}

	return cp
}

// Table is the list of every known node ordered by currency code
type Table []Rate

// NewTable sorts nodes by currency code. Later duplicates of a code are dropped
func NewTable(nodes []Rate) Table {
	seen := make(map[label.Symbol]struct{}, len(nodes))
	t := make(Table, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.Currency]; ok {
			continue
		}
		seen[n.Currency] = struct{}{}
		t = append(t, n.Clone())
	}

	t.sort()

	return t
}

func (t Table) sort() {
	sort.Slice(t, func(i, j int) bool {
		return t[i].Currency < t[j].Currency
	})
}

func (t Table) index(sym label.Symbol) (int, bool) {
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Currency >= sym
	})

	return i, i < len(t) && t[i].Currency == sym
}

// Find returns the node for sym
func (t Table) Find(sym label.Symbol) (Rate, bool) {
	i, ok := t.index(sym)
	if !ok {
		return Rate{}, false
	}

	return t[i], true
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	cp := make(Table, len(t))
	for i := range t {
		cp[i] = t[i].Clone()
	}

	return cp
}

// Currencies returns the codes in table order
func (t Table) Currencies() []label.Symbol {
	list := make([]label.Symbol, len(t))
	for i := range t {
		list[i] = t[i].Currency
	}

	return list
}

// ExchangeRateInfo is the derived view handed to the outside: the table and the current selection, if any
type ExchangeRateInfo struct {
	Rates     Table
	Selection *Selection
}
