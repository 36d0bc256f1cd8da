package kawase

import (
	"fmt"
	"sort"

	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/provider"
	"github.com/shopspring/decimal"
)

// MergeOptions seed the starting balance. The starting currency receives StartingAmount the first time its
// node is ever created
type MergeOptions struct {
	StartingCurrency label.Symbol
	StartingAmount   decimal.Decimal
}

// MergeResult is the merged table with the nodes split by what storage has to do with them
type MergeResult struct {
	Table    Table
	Inserted []Rate
	Updated  []Rate
}

// Merge folds a base-relative payload into prev and returns a new table. prev is left untouched.
// Every rate must be positive, a single zero or negative rate rejects the whole payload
func Merge(prev Table, payload provider.Payload, opts MergeOptions) (MergeResult, error) {
	if payload.Base == "" {
		return MergeResult{}, &InvariantViolation{Op: "merge", Reason: "payload without base currency"}
	}

	codes := make([]label.Symbol, 0, len(payload.Rates))
	for code, rate := range payload.Rates {
		if code == payload.Base {
			continue
		}

		if !rate.IsPositive() {
			return MergeResult{}, &InvariantViolation{
				Op:     "merge",
				Reason: fmt.Sprintf("rate %s for %s against %s is not positive", rate, code, payload.Base),
			}
		}

		codes = append(codes, code)
	}

	sort.Slice(codes, func(i, j int) bool {
		return codes[i] < codes[j]
	})

	nodes := make(map[label.Symbol]*Rate, len(prev)+len(codes)+1)
	for _, r := range prev {
		r := r.Clone()
		nodes[r.Currency] = &r
	}

	created := make(map[label.Symbol]struct{})
	touched := make(map[label.Symbol]struct{})

	base, ok := nodes[payload.Base]
	if !ok {
		r := NewRate(payload.Base)
		if r.Currency == opts.StartingCurrency {
			r.Balance = opts.StartingAmount
		}
		base = &r
		nodes[r.Currency] = base
		created[r.Currency] = struct{}{}
	}
	touched[base.Currency] = struct{}{}

	for _, code := range codes {
		rate := payload.Rates[code]

		node, ok := nodes[code]
		if !ok {
			r := NewRate(code)
			node = &r
			nodes[code] = node
			created[code] = struct{}{}
		}
		touched[code] = struct{}{}

		node.ConversionMap[base.Currency] = ConversionValue{Rate: rate, AsOf: payload.Date}
		base.ConversionMap[code] = ConversionValue{Rate: decimal.NewFromInt(1).Div(rate), AsOf: payload.Date}
	}

	res := MergeResult{Table: make(Table, 0, len(nodes))}
	for _, n := range nodes {
		res.Table = append(res.Table, *n)
	}
	res.Table.sort()

	for _, n := range res.Table {
		if _, ok := touched[n.Currency]; !ok {
			continue
		}

		if _, ok := created[n.Currency]; ok {
			res.Inserted = append(res.Inserted, n)
		} else {
			res.Updated = append(res.Updated, n)
		}
	}

	return res, nil
}
