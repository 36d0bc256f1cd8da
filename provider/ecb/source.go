package ecb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/robotomize/kawase/provider"
	"github.com/robotomize/kawase/provider/httputil"
)

const hostname = "www.ecb.europa.eu"

const (
	latestXMLRawPath = "/stats/eurofxref/eurofxref-daily.xml"
	latestCSVRawPath = "/stats/eurofxref/eurofxref.zip"
)

var (
	defaultLatestResourceCSV = url.URL{Scheme: "https", Host: hostname, Path: latestCSVRawPath}
	defaultLatestResourceXML = url.URL{Scheme: "https", Host: hostname, Path: latestXMLRawPath}
)

var _ provider.Source = (*source)(nil)

type fetcher struct {
	latestURL url.URL
	decodeFunc
	httputil.SourceHTTPClient
}

func NewSource(client *http.Client) *source {
	httpClient := httputil.NewHTTPClient(client)

	return &source{
		fetchers: []fetcher{{
			latestURL:        defaultLatestResourceCSV,
			decodeFunc:       decodeCSV,
			SourceHTTPClient: httpClient,
		}, {
			latestURL:        defaultLatestResourceXML,
			decodeFunc:       decodeXML,
			SourceHTTPClient: httpClient,
		}},
	}
}

type source struct {
	fetchers []fetcher
}

// FetchRates returns the most recent EUR based table published by the ECB
func (s *source) FetchRates(ctx context.Context) (provider.Payload, error) {
	payload, err := s.fetchingPlan(ctx)
	if err != nil {
		return provider.Payload{}, fmt.Errorf("fetching plan: %w", err)
	}

	return payload, nil
}

// fetchingPlan requests every format at once and decodes the first successful answer
func (s *source) fetchingPlan(ctx context.Context) (provider.Payload, error) {
	type fetchingDat struct {
		err error
		b   []byte
		d   decodeFunc
	}

	var dat fetchingDat
	var ferr *multierror.Error

	wg := sync.WaitGroup{}
	wg.Add(1)

	ch := make(chan fetchingDat)
	stopCh := make(chan struct{})

	for _, fet := range s.fetchers {
		fet := fet
		go func() {
			select {
			case <-stopCh:
				return
			default:
			}

			b, err := fet.Get(ctx, fet.latestURL)

			select {
			case <-stopCh:
				return
			case ch <- fetchingDat{b: b, d: fet.decodeFunc, err: err}:
			}
		}()
	}

	go func() {
		defer wg.Done()
		defer close(stopCh)
		n := len(s.fetchers)
		for {
			select {
			case <-ctx.Done():
				ferr = multierror.Append(ferr, fmt.Errorf("ctx cancelled: %w", ctx.Err()))
				return
			case dat = <-ch:
				n--
				if dat.err == nil {
					return
				}
				ferr = multierror.Append(ferr, dat.err)
				if n == 0 {
					return
				}
			}
		}
	}()

	wg.Wait()

	if dat.b == nil || dat.d == nil {
		return provider.Payload{}, classify(ferr.ErrorOrNil())
	}

	payload, err := dat.d(dat.b)
	if err != nil {
		return provider.Payload{}, &provider.RemoteError{
			Message: err.Error(),
			Err:     fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err),
		}
	}

	return payload, nil
}

// classify picks the error class of the plan: offline only when every fetcher was offline
func classify(err error) error {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return err
	}

	for _, e := range merr.WrappedErrors() {
		if !errors.Is(e, provider.ErrConnectivityAbsent) {
			return fmt.Errorf("%v: %w", merr, e)
		}
	}

	return fmt.Errorf("%v: %w", merr, provider.ErrConnectivityAbsent)
}
