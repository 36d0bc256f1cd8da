package kawase

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

func scenarioTable(t *testing.T) Table {
	t.Helper()

	return mustMerge(t, nil, eurPayload()).Table
}

func TestDefaultSelection(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)

	testCases := []struct {
		name     string
		table    Table
		expected Selection
		err      error
	}{
		{
			name:  "test_default_eur_to_gbp",
			table: table,
			expected: Selection{
				Sell:          label.EUR,
				Receive:       label.GBP,
				SellAmount:    decimal.NewFromInt(1000),
				ReceiveAmount: decimal.RequireFromString("850"),
			},
		},
		{
			name:  "test_default_no_funds",
			table: mustMergeWith(t, MergeOptions{StartingCurrency: label.JPY}),
			err:   ErrNoFunds,
		},
		{
			name:  "test_default_no_route",
			table: NewTable([]Rate{withBalance(NewRate(label.EUR), "10")}),
			err:   ErrNoRoute,
		},
		{
			name:  "test_default_empty",
			table: nil,
			err:   ErrNoFunds,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DefaultSelection(tc.table)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("default selection: %v", err)
			}

			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func mustMergeWith(t *testing.T, opts MergeOptions) Table {
	t.Helper()

	res, err := Merge(nil, eurPayload(), opts)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	return res.Table
}

func withBalance(r Rate, amount string) Rate {
	r.Balance = decimal.RequireFromString(amount)
	return r
}

func TestSelection_ScenarioChain(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)

	sel, err := DefaultSelection(table)
	if err != nil {
		t.Fatalf("default selection: %v", err)
	}

	if sel, err = sel.ChangeSellCurrency(table, label.EUR); err != nil {
		t.Fatalf("change sell currency: %v", err)
	}

	if sel, err = sel.ChangeSellAmount(table, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("change sell amount: %v", err)
	}

	if sel, err = sel.ChangeReceiveCurrency(table, label.USD); err != nil {
		t.Fatalf("change receive currency: %v", err)
	}

	if diff := cmp.Diff("110.00", sel.ReceiveAmount.StringFixed(Places)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestSelection_ChangeSellAmount(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)

	testCases := []struct {
		name     string
		amount   decimal.Decimal
		sell     string
		received string
		err      error
	}{
		{
			name:     "test_amount_within_balance",
			amount:   decimal.RequireFromString("12.34"),
			sell:     "12.34",
			received: "10.49",
		},
		{
			name:     "test_amount_clamped",
			amount:   decimal.NewFromInt(5000),
			sell:     "1000",
			received: "850",
		},
		{
			name:     "test_amount_zero",
			amount:   decimal.Zero,
			sell:     "0",
			received: "0",
		},
		{
			name:   "test_amount_negative",
			amount: decimal.NewFromInt(-1),
			err:    ErrNegativeAmount,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sel, err := DefaultSelection(table)
			if err != nil {
				t.Fatalf("default selection: %v", err)
			}

			got, err := sel.ChangeSellAmount(table, tc.amount)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}

				if diff := cmp.Diff(sel, got); diff != "" {
					t.Errorf("selection changed on error (-want, +got):\n%s", diff)
				}
				return
			}

			if err != nil {
				t.Fatalf("change sell amount: %v", err)
			}

			if !got.SellAmount.Equal(decimal.RequireFromString(tc.sell)) {
				t.Errorf("sell amount: want %s, got %s", tc.sell, got.SellAmount)
			}

			if !got.ReceiveAmount.Equal(decimal.RequireFromString(tc.received)) {
				t.Errorf("receive amount: want %s, got %s", tc.received, got.ReceiveAmount)
			}
		})
	}
}

func TestSelection_ChangeCurrency(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)
	// JPY is known but never linked to EUR
	table = NewTable(append(table.Clone(), withBalance(NewRate(label.JPY), "5")))

	testCases := []struct {
		name    string
		change  func(s Selection) (Selection, error)
		receive label.Symbol
		err     error
	}{
		{
			name: "test_receive_usd",
			change: func(s Selection) (Selection, error) {
				return s.ChangeReceiveCurrency(table, label.USD)
			},
			receive: label.USD,
		},
		{
			name: "test_receive_same_as_sell",
			change: func(s Selection) (Selection, error) {
				return s.ChangeReceiveCurrency(table, label.EUR)
			},
			err: ErrNoRoute,
		},
		{
			name: "test_receive_unlinked",
			change: func(s Selection) (Selection, error) {
				return s.ChangeReceiveCurrency(table, label.JPY)
			},
			err: ErrNoRoute,
		},
		{
			name: "test_receive_unknown",
			change: func(s Selection) (Selection, error) {
				return s.ChangeReceiveCurrency(table, label.CHF)
			},
			err: ErrCurrencyNotFound,
		},
		{
			name: "test_sell_without_funds",
			change: func(s Selection) (Selection, error) {
				return s.ChangeSellCurrency(table, label.USD)
			},
			err: ErrNoFunds,
		},
		{
			name: "test_sell_unknown",
			change: func(s Selection) (Selection, error) {
				return s.ChangeSellCurrency(table, label.CHF)
			},
			err: ErrCurrencyNotFound,
		},
		{
			name: "test_sell_without_route",
			change: func(s Selection) (Selection, error) {
				return s.ChangeSellCurrency(table, label.JPY)
			},
			err: ErrNoRoute,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sel, err := DefaultSelection(table)
			if err != nil {
				t.Fatalf("default selection: %v", err)
			}

			got, err := tc.change(sel)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}

				if diff := cmp.Diff(sel, got); diff != "" {
					t.Errorf("selection changed on error (-want, +got):\n%s", diff)
				}
				return
			}

			if err != nil {
				t.Fatalf("change: %v", err)
			}

			if diff := cmp.Diff(tc.receive, got.Receive); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestSelection_Revalidate(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)

	sel, err := DefaultSelection(table)
	if err != nil {
		t.Fatalf("default selection: %v", err)
	}

	if sel, err = sel.ChangeReceiveCurrency(table, label.USD); err != nil {
		t.Fatalf("change receive currency: %v", err)
	}

	payload := eurPayload()
	payload.Rates[label.USD] = decimal.RequireFromString("1.2")
	refreshed := mustMerge(t, table, payload).Table

	got, err := sel.Revalidate(refreshed)
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}

	expected := Selection{
		Sell:          label.EUR,
		Receive:       label.USD,
		SellAmount:    decimal.NewFromInt(1000),
		ReceiveAmount: decimal.NewFromInt(1200),
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestQuote_Rounding(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		rate     string
		amount   string
		expected string
	}{
		{
			name:     "test_round_half_up",
			rate:     "0.5",
			amount:   "0.05",
			expected: "0.03",
		},
		{
			name:     "test_round_down",
			rate:     "1.234",
			amount:   "1",
			expected: "1.23",
		},
		{
			name:     "test_round_up",
			rate:     "1.235",
			amount:   "1",
			expected: "1.24",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			receive := NewRate(label.USD)
			receive.ConversionMap[label.EUR] = ConversionValue{Rate: decimal.RequireFromString(tc.rate)}
			table := NewTable([]Rate{NewRate(label.EUR), receive})

			got, err := Quote(table, label.EUR, label.USD, decimal.RequireFromString(tc.amount))
			if err != nil {
				t.Fatalf("quote: %v", err)
			}

			if diff := cmp.Diff(tc.expected, got.StringFixed(Places)); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}
