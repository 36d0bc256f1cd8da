package cae

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/robotomize/kawase/internal/strutil"
	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/provider"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	dateSelector = "#ratesDatePicker > h3 > span > span"
	rowSelector  = "#ratesDateTable tbody tr"
)

var (
	errParseAttrNotValid = errors.New("attr is not valid")
	errHTMLNotValid      = errors.New("html not valid")
)

var one = decimal.NewFromInt(1)

// decodeHTML reads the fx-rates page. The bank quotes AED per one unit of each currency,
// the payload holds the inverse: units of each currency per one AED
func decodeHTML(b []byte) (provider.Payload, error) {
	root, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return provider.Payload{}, fmt.Errorf("%w: html parse: %v", errHTMLNotValid, err)
	}

	doc := goquery.NewDocumentFromNode(root)

	caption := strings.TrimPrefix(strings.TrimSpace(doc.Find(dateSelector).Text()), "Date")
	date, err := time.Parse("02-01-2006", strings.TrimSpace(caption))
	if err != nil {
		return provider.Payload{}, fmt.Errorf("%w: date %q", errParseAttrNotValid, caption)
	}

	payload := provider.Payload{
		Base:  label.AED,
		Date:  date.Format("2006-01-02"),
		Rates: make(map[label.Symbol]decimal.Decimal),
	}

	var rowErr error
	doc.Find(rowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() != 2 {
			rowErr = fmt.Errorf("%w: row has %d cells", errHTMLNotValid, cells.Length())
			return false
		}

		name := strutil.RemoveExtraSpaces(cells.First().Text())
		if name == "" {
			rowErr = fmt.Errorf("%w: empty currency name", errParseAttrNotValid)
			return false
		}

		sym, ok := label.Names[name]
		if !ok || sym == label.AED {
			return true
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(cells.Last().Text()))
		if err != nil || !rate.IsPositive() {
			rowErr = fmt.Errorf("%w: %s rate %q", errParseAttrNotValid, sym, cells.Last().Text())
			return false
		}

		payload.Rates[sym] = one.Div(rate)

		return true
	})

	if rowErr != nil {
		return provider.Payload{}, rowErr
	}

	return payload, nil
}
