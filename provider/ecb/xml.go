package ecb

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/robotomize/kawase/provider"
)

// xmlDay is a <Cube time="..."> element with its <Cube currency="..." rate="..."/> children
type xmlDay struct {
	Time  string `xml:"time,attr"`
	Rates []struct {
		Currency string `xml:"currency,attr"`
		Rate     string `xml:"rate,attr"`
	} `xml:"Cube"`
}

// decodeXML streams the eurofxref envelope and decodes only the day elements
func decodeXML(b []byte) (provider.Payload, error) {
	var day latestDay

	decoder := xml.NewDecoder(bytes.NewReader(b))
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return provider.Payload{}, fmt.Errorf("%w: %v", errDecodeToken, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Cube" || !hasAttr(start, "time") {
			continue
		}

		var node xmlDay
		if err := decoder.DecodeElement(&node, &start); err != nil {
			return provider.Payload{}, fmt.Errorf("%w: %v", errDecodeToken, err)
		}

		date, err := time.Parse(dateLayout, node.Time)
		if err != nil {
			return provider.Payload{}, fmt.Errorf("%w: time: %v", errAttributeNotValid, err)
		}

		if !day.offer(date) {
			continue
		}

		for _, r := range node.Rates {
			if err := day.add(r.Currency, r.Rate); err != nil {
				return provider.Payload{}, err
			}
		}
	}

	return day.payload()
}

func hasAttr(el xml.StartElement, name string) bool {
	for _, attr := range el.Attr {
		if attr.Name.Local == name {
			return true
		}
	}

	return false
}
