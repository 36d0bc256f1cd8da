package httputil

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/robotomize/kawase/provider"
)

const defaultUserAgent = "kawase/0.1.0"

var ErrStatusCode = errors.New("http status != 200")

// NewClient returns the http.Client rate sources share. timeout bounds a whole request, zero means none.
// Responses are decompressed by SourceHTTPClient, so the transport does not ask for compression itself
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			DisableCompression:    true,
			IdleConnTimeout:       5 * time.Minute,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewHTTPClient return prepared SourceHTTPClient
func NewHTTPClient(client *http.Client) SourceHTTPClient {
	return SourceHTTPClient{client: client}
}

type SourceHTTPClient struct {
	client *http.Client
}

func (f SourceHTTPClient) UserAgent() string {
	return defaultUserAgent
}

// Get implements HTTP method GET client and returns the slice byte from the body.
// Errors are classified as provider.ErrConnectivityAbsent, *provider.RemoteError or *provider.TransportError
func (f SourceHTTPClient) Get(ctx context.Context, u url.URL) ([]byte, error) {
	return f.fetch(ctx, u)
}

func (f SourceHTTPClient) fetch(ctx context.Context, u url.URL) ([]byte, error) {
	req, err := f.prepareRequest(ctx, u)
	if err != nil {
		return nil, &provider.TransportError{Err: fmt.Errorf("build HTTP request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isOffline(err) {
			return nil, fmt.Errorf("make HTTP request: %v: %w", err, provider.ErrConnectivityAbsent)
		}

		return nil, &provider.TransportError{Err: fmt.Errorf("make HTTP request: %w", err)}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.RemoteError{
			Code:    resp.StatusCode,
			Message: resp.Status,
			Err:     ErrStatusCode,
		}
	}

	var reader io.ReadCloser
	contentType := resp.Header.Get("Content-Type")
	contentEncoding := resp.Header.Get("Content-Encoding")
	switch {
	case strings.Contains(contentType, "application/x-gzip"), strings.Contains(contentEncoding, "gzip"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &provider.TransportError{Err: fmt.Errorf("unable create gzip.NewReader: %w", err)}
		}
		reader = gz
		defer reader.Close()

	default:
		reader = resp.Body
	}

	b, err := io.ReadAll(reader)
	if err != nil {
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &provider.TransportError{Err: fmt.Errorf("read body: %w", err)}
		}
	}

	return b, nil
}

func (f SourceHTTPClient) prepareRequest(ctx context.Context, u url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	return req, nil
}

// isOffline reports errors that mean the host can not be reached at all: name resolution, refused or
// unreachable network
func isOffline(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETDOWN):
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr) && opErr.Op == "dial"
}
