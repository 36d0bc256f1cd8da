package ecb

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/robotomize/kawase/provider"
)

const csvDateLayout = "02 January 2006"

var zipMagic = []byte("PK\x03\x04")

// decodeCSV reads the eurofxref table: a Date column followed by one column per currency.
// The body may be the csv itself or the zip archive the ECB publishes it in
func decodeCSV(b []byte) (provider.Payload, error) {
	b, err := unpack(b)
	if err != nil {
		return provider.Payload{}, err
	}

	reader := csv.NewReader(bytes.NewReader(b))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return provider.Payload{}, fmt.Errorf("%w: %v", errDecodeToken, parseErr)
		}

		return provider.Payload{}, fmt.Errorf("read csv: %w", err)
	}

	if len(records) == 0 {
		return provider.Payload{}, errNoRates
	}

	header := records[0]
	if strings.TrimSpace(header[0]) != "Date" {
		return provider.Payload{}, fmt.Errorf("%w: first column is %q", errAttributeNotValid, header[0])
	}

	var day latestDay
	for _, row := range records[1:] {
		date, err := time.Parse(csvDateLayout, strings.TrimSpace(row[0]))
		if err != nil {
			return provider.Payload{}, fmt.Errorf("%w: date: %v", errAttributeNotValid, err)
		}

		if !day.offer(date) {
			continue
		}

		for n := 1; n < len(row); n++ {
			if err := day.add(strings.TrimSpace(header[n]), row[n]); err != nil {
				return provider.Payload{}, err
			}
		}
	}

	return day.payload()
}

// unpack returns the csv file of a zip archive. Any other body is returned unchanged
func unpack(b []byte) ([]byte, error) {
	if !bytes.HasPrefix(b, zipMagic) {
		return b, nil
	}

	archive, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecodeToken, err)
	}

	for _, f := range archive.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()

		return io.ReadAll(rc)
	}

	return nil, fmt.Errorf("%w: no csv file in archive", errDecodeToken)
}
