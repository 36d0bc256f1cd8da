package frankfurter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robotomize/kawase/label"
	"github.com/robotomize/kawase/provider"
	"github.com/shopspring/decimal"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expected provider.Payload
		err      bool
	}{
		{
			name: "test_decode_numbers",
			body: `{"amount":1.0,"base":"EUR","date":"2024-01-01","rates":{"USD":1.1,"GBP":0.85}}`,
			expected: provider.Payload{
				Base: label.EUR,
				Date: "2024-01-01",
				Rates: map[label.Symbol]decimal.Decimal{
					label.USD: decimal.RequireFromString("1.1"),
					label.GBP: decimal.RequireFromString("0.85"),
				},
			},
		},
		{
			name: "test_decode_strings",
			body: `{"base":"usd","date":"2024-02-01","rates":{"JPY":"148.12"}}`,
			expected: provider.Payload{
				Base: label.USD,
				Date: "2024-02-01",
				Rates: map[label.Symbol]decimal.Decimal{
					label.JPY: decimal.RequireFromString("148.12"),
				},
			},
		},
		{
			name: "test_decode_zero_is_kept",
			body: `{"base":"EUR","date":"2024-01-01","rates":{"USD":0}}`,
			expected: provider.Payload{
				Base: label.EUR,
				Date: "2024-01-01",
				Rates: map[label.Symbol]decimal.Decimal{
					label.USD: decimal.Zero,
				},
			},
		},
		{
			name: "test_decode_non_iso_code",
			body: `{"base":"EUR","date":"2024-01-01","rates":{"BTC":0.000021,"USD":1.1}}`,
			expected: provider.Payload{
				Base: label.EUR,
				Date: "2024-01-01",
				Rates: map[label.Symbol]decimal.Decimal{
					label.Symbol("BTC"): decimal.RequireFromString("0.000021"),
					label.USD:           decimal.RequireFromString("1.1"),
				},
			},
		},
		{
			name: "test_decode_bad_code",
			body: `{"base":"EUR","date":"2024-01-01","rates":{"US-D":1.1}}`,
			err:  true,
		},
		{
			name: "test_decode_missing_base",
			body: `{"date":"2024-01-01","rates":{"USD":1.1}}`,
			err:  true,
		},
		{
			name: "test_decode_rates_not_object",
			body: `{"base":"EUR","date":"2024-01-01","rates":[1.1]}`,
			err:  true,
		},
		{
			name: "test_decode_rate_bool",
			body: `{"base":"EUR","date":"2024-01-01","rates":{"USD":true}}`,
			err:  true,
		},
		{
			name: "test_decode_broken_json",
			body: `{"base":"EUR",`,
			err:  true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := decode([]byte(tc.body))
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if diff := cmp.Diff(tc.expected.Base, got.Base); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			if diff := cmp.Diff(tc.expected.Date, got.Date); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			if diff := cmp.Diff(len(tc.expected.Rates), len(got.Rates)); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}

			for sym, rate := range tc.expected.Rates {
				if !rate.Equal(got.Rates[sym]) {
					t.Errorf("rate %s: want %s, got %s", sym, rate, got.Rates[sym])
				}
			}
		})
	}
}

func TestSource_FetchRates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		handler http.HandlerFunc
		base    label.Symbol
		check   func(t *testing.T, err error)
	}{
		{
			name: "test_fetch_ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"base":"EUR","date":"2024-01-01","rates":{"USD":"1.1"}}`))
			},
			base: label.EUR,
		},
		{
			name: "test_fetch_malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html></html>`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, provider.ErrMalformedPayload) {
					t.Errorf("expected malformed payload, got %v", err)
				}
			},
		},
		{
			name: "test_fetch_not_found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			check: func(t *testing.T, err error) {
				var remoteErr *provider.RemoteError
				if !errors.As(err, &remoteErr) || remoteErr.Code != http.StatusNotFound {
					t.Errorf("expected remote 404, got %v", err)
				}
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			u, err := url.Parse(srv.URL + "/latest")
			if err != nil {
				t.Fatalf("url parse: %v", err)
			}

			got, err := NewSourceWithURL(srv.Client(), *u).FetchRates(context.Background())
			if tc.check != nil {
				tc.check(t, err)
				return
			}

			if err != nil {
				t.Fatalf("fetch rates: %v", err)
			}

			if diff := cmp.Diff(tc.base, got.Base); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}
