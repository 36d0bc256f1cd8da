package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/session"
	"github.com/shopspring/decimal"
)

const usage = `commands:
  rates           fetch the latest rates
  sell CODE       sell from CODE
  receive CODE    receive into CODE
  amount N        sell N units
  settle          convert the selected amount
  show            print balances and the current selection
  quit            save and exit`

var (
	errUnknownCommand = errors.New("unknown command")
	errArgument       = errors.New("bad argument")
)

// command is a parsed input line. Exactly one of its fields is set
type command struct {
	event session.Event
	show  bool
	help  bool
	quit  bool
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]

	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %s takes one argument", errArgument, name)
		}
		return args[0], nil
	}

	switch name {
	case "rates", "refresh":
		return command{event: session.RequestRates{}}, nil
	case "settle":
		return command{event: session.Settle{}}, nil
	case "show":
		return command{show: true}, nil
	case "help", "?":
		return command{help: true}, nil
	case "quit", "exit":
		return command{quit: true}, nil
	case "sell", "receive":
		v, err := arg()
		if err != nil {
			return command{}, err
		}

		sym, err := label.Parse(v)
		if err != nil {
			return command{}, fmt.Errorf("%w: %v", errArgument, err)
		}

		if name == "sell" {
			return command{event: session.ChangeSellCurrency{Currency: sym}}, nil
		}

		return command{event: session.ChangeReceiveCurrency{Currency: sym}}, nil
	case "amount":
		v, err := arg()
		if err != nil {
			return command{}, err
		}

		amount, err := decimal.NewFromString(v)
		if err != nil {
			return command{}, fmt.Errorf("%w: %v", errArgument, err)
		}

		return command{event: session.ChangeSellAmount{Amount: amount}}, nil
	default:
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
}

// printer writes state changes, skipping a line identical to the previous one so periodic refreshes stay quiet
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (p *printer) print(st session.State) {
	line := describe(st)
	if line == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if line == p.last {
		return
	}
	p.last = line

	fmt.Fprintln(p.w, line)
}

func describe(st session.State) string {
	switch s := st.(type) {
	case session.Loading:
		return "loading rates..."
	case session.Ready:
		var parts []string
		if s.Message != "" {
			parts = append(parts, s.Message)
		}

		if s.Notice != nil {
			parts = append(parts, "! "+s.Notice.Error())
		}

		parts = append(parts, describeSelection(s.Info.Selection))

		return strings.Join(parts, "\n")
	case session.Offline:
		if s.Info == nil {
			return "offline, no saved rates"
		}

		return "offline, showing saved rates\n" + describeSelection(s.Info.Selection)
	case session.Failed:
		return "error: " + s.Err.Error()
	default:
		return ""
	}
}

func describeSelection(sel *kawase.Selection) string {
	if sel == nil {
		return "nothing selected"
	}

	return fmt.Sprintf("sell %s %s -> receive %s %s",
		sel.SellAmount.StringFixed(kawase.Places), sel.Sell,
		sel.ReceiveAmount.StringFixed(kawase.Places), sel.Receive,
	)
}

// writeTable prints every balance and the direct rates of each currency
func writeTable(w io.Writer, table kawase.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CURRENCY\tBALANCE\tRATES")

	for _, r := range table {
		codes := make([]string, 0, len(r.ConversionMap))
		for sym := range r.ConversionMap {
			codes = append(codes, sym.String())
		}
		sort.Strings(codes)

		rates := make([]string, 0, len(codes))
		for _, code := range codes {
			rates = append(rates, fmt.Sprintf("%s=%s", code, r.ConversionMap[label.Symbol(code)].Rate.Round(6)))
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Currency, r.Balance.StringFixed(kawase.Places), strings.Join(rates, " "))
	}

	return tw.Flush()
}

func infoOf(st session.State) (kawase.ExchangeRateInfo, bool) {
	switch s := st.(type) {
	case session.Ready:
		return s.Info, true
	case session.AutoRefreshing:
		return s.Info, true
	case session.Offline:
		if s.Info != nil {
			return *s.Info, true
		}
	}

	return kawase.ExchangeRateInfo{}, false
}
