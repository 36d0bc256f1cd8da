package kawase

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

func eurToUSD(t *testing.T, table Table, amount int64) Selection {
	t.Helper()

	sel, err := DefaultSelection(table)
	if err != nil {
		t.Fatalf("default selection: %v", err)
	}

	if sel, err = sel.ChangeSellAmount(table, decimal.NewFromInt(amount)); err != nil {
		t.Fatalf("change sell amount: %v", err)
	}

	if sel, err = sel.ChangeReceiveCurrency(table, label.USD); err != nil {
		t.Fatalf("change receive currency: %v", err)
	}

	return sel
}

func TestSettle(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)
	snapshot := table.Clone()
	sel := eurToUSD(t, table, 100)

	res, err := Settle(table, sel)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if diff := cmp.Diff(snapshot, table); diff != "" {
		t.Errorf("input table changed (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff("You have converted 100.00 EUR to 110.00 USD.", res.Message); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	eur, _ := res.Table.Find(label.EUR)
	usd, _ := res.Table.Find(label.USD)

	if !eur.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("EUR balance: want 900, got %s", eur.Balance)
	}

	if diff := cmp.Diff("110.00", usd.Balance.StringFixed(Places)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff(eur, res.Debited); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff(usd, res.Credited); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if res.Next == nil {
		t.Fatalf("expected next selection, notice %v", res.Notice)
	}

	expected := Selection{
		Sell:          label.EUR,
		Receive:       label.USD,
		SellAmount:    decimal.NewFromInt(100),
		ReceiveAmount: decimal.NewFromInt(110),
	}

	if diff := cmp.Diff(expected, *res.Next); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestSettle_Conservation(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)
	sel := eurToUSD(t, table, 333)

	res, err := Settle(table, sel)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	for _, before := range table {
		after, _ := res.Table.Find(before.Currency)

		var expected decimal.Decimal
		switch before.Currency {
		case sel.Sell:
			expected = before.Balance.Sub(sel.SellAmount)
		case sel.Receive:
			expected = before.Balance.Add(sel.ReceiveAmount)
		default:
			expected = before.Balance
		}

		if !after.Balance.Equal(expected) {
			t.Errorf("%s balance: want %s, got %s", before.Currency, expected, after.Balance)
		}
	}
}

func TestSettle_Errors(t *testing.T) {
	t.Parallel()

	table := scenarioTable(t)

	testCases := []struct {
		name string
		sel  Selection
		err  error
	}{
		{
			name: "test_zero_amount",
			sel:  Selection{Sell: label.EUR, Receive: label.USD, SellAmount: decimal.Zero},
			err:  ErrNothingToSettle,
		},
		{
			name: "test_same_currency",
			sel:  Selection{Sell: label.EUR, Receive: label.EUR, SellAmount: decimal.NewFromInt(1)},
			err:  ErrInvariantViolation,
		},
		{
			name: "test_missing_edge",
			sel:  Selection{Sell: label.USD, Receive: label.GBP, SellAmount: decimal.NewFromInt(1)},
			err:  ErrInvariantViolation,
		},
		{
			name: "test_missing_node",
			sel:  Selection{Sell: label.EUR, Receive: label.JPY, SellAmount: decimal.NewFromInt(1)},
			err:  ErrInvariantViolation,
		},
		{
			name: "test_over_balance",
			sel:  Selection{Sell: label.EUR, Receive: label.USD, SellAmount: decimal.NewFromInt(1001)},
			err:  ErrInvariantViolation,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Settle(table, tc.sel)
			if !errors.Is(err, tc.err) {
				t.Errorf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestSettle_Reselect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		amount   int64
		sell     label.Symbol
		receive  label.Symbol
		sellLeft string
		notice   error
	}{
		{
			name:     "test_sell_everything_moves_to_usd",
			amount:   1000,
			sell:     label.USD,
			receive:  label.EUR,
			sellLeft: "1100",
		},
		{
			name:     "test_partial_keeps_eur",
			amount:   400,
			sell:     label.EUR,
			receive:  label.USD,
			sellLeft: "400",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			table := scenarioTable(t)
			res, err := Settle(table, eurToUSD(t, table, tc.amount))
			if err != nil {
				t.Fatalf("settle: %v", err)
			}

			if res.Next == nil {
				t.Fatalf("expected next selection, notice %v", res.Notice)
			}

			if diff := cmp.Diff(tc.sell, res.Next.Sell); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			if diff := cmp.Diff(tc.receive, res.Next.Receive); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			if !res.Next.SellAmount.Equal(decimal.RequireFromString(tc.sellLeft)) {
				t.Errorf("sell amount: want %s, got %s", tc.sellLeft, res.Next.SellAmount)
			}
		})
	}
}

func TestSettle_DustBalance(t *testing.T) {
	t.Parallel()

	receive := NewRate(label.USD)
	receive.ConversionMap[label.EUR] = ConversionValue{Rate: decimal.RequireFromString("1.1")}
	sell := withBalance(NewRate(label.EUR), "10.004")
	sell.ConversionMap[label.USD] = ConversionValue{Rate: decimal.NewFromInt(1).Div(decimal.RequireFromString("1.1"))}
	table := NewTable([]Rate{sell, receive})

	sel := Selection{
		Sell:          label.EUR,
		Receive:       label.USD,
		SellAmount:    decimal.NewFromInt(10),
		ReceiveAmount: decimal.NewFromInt(11),
	}

	res, err := Settle(table, sel)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !res.Debited.Balance.Equal(decimal.Zero) {
		t.Errorf("dust balance must be zero, got %s", res.Debited.Balance)
	}

	if res.Next == nil || res.Next.Sell != label.USD {
		t.Errorf("expected USD to be the next sell currency, got %+v", res.Next)
	}
}

func TestSettle_NoFundsLeft(t *testing.T) {
	t.Parallel()

	receive := NewRate(label.USD)
	receive.ConversionMap[label.EUR] = ConversionValue{Rate: decimal.RequireFromString("0.001")}
	table := NewTable([]Rate{withBalance(NewRate(label.EUR), "1"), receive})

	sel := Selection{Sell: label.EUR, Receive: label.USD, SellAmount: decimal.NewFromInt(1)}

	res, err := Settle(table, sel)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if res.Next != nil {
		t.Errorf("expected no next selection, got %+v", res.Next)
	}

	if !errors.Is(res.Notice, ErrNoFunds) {
		t.Errorf("expected no funds notice, got %v", res.Notice)
	}
}
