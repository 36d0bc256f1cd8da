package cae

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/robotomize/kawase/provider"
	"github.com/robotomize/kawase/provider/httputil"
)

const hostname = "www.centralbank.ae"

type fetcher struct {
	u url.URL
	httputil.SourceHTTPClient
}

var _ provider.Source = (*source)(nil)

func NewSource(client *http.Client) *source {
	return &source{
		client: fetcher{
			u: url.URL{
				Scheme: "https",
				Host:   hostname,
				Path:   "en/fx-rates",
			},
			SourceHTTPClient: httputil.NewHTTPClient(client),
		},
		now: time.Now,
	}
}

type source struct {
	client fetcher
	now    func() time.Time
}

// FetchRates returns the AED based table of the day
func (s *source) FetchRates(ctx context.Context) (provider.Payload, error) {
	payload, err := s.fetchingPlan(ctx)
	if err != nil {
		return provider.Payload{}, fmt.Errorf("fetching plan: %w", err)
	}

	return payload, nil
}

func (s *source) fetchingPlan(ctx context.Context) (provider.Payload, error) {
	u := s.client.u
	query := u.Query()
	query.Set("date_req", s.now().UTC().Format("02/01/2006"))
	u.RawQuery = query.Encode()

	b, err := s.client.Get(ctx, u)
	if err != nil {
		return provider.Payload{}, fmt.Errorf("fetching: %w", err)
	}

	payload, err := decodeHTML(b)
	if err != nil {
		return provider.Payload{}, &provider.RemoteError{
			Message: err.Error(),
			Err:     fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err),
		}
	}

	return payload, nil
}
