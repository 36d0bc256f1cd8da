package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultRetryNum      = 1
	DefaultRetryDuration = 5 * time.Second
)

var _ Source = (*retrySource)(nil)

// WithRetry wraps the source with a constant backoff. Only transport failures and 5xx answers are repeated,
// a missing connection is reported at once
func WithRetry(source Source, num uint64, duration time.Duration) Source {
	return &retrySource{source: source, num: num, duration: duration}
}

type retrySource struct {
	source   Source
	num      uint64
	duration time.Duration
}

func (r *retrySource) FetchRates(ctx context.Context) (Payload, error) {
	var payload Payload

	b, err := retry.NewConstant(r.duration)
	if err != nil {
		return payload, fmt.Errorf("retry.NewConstant: %w", err)
	}

	b = retry.WithMaxRetries(r.num, b)

	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		p, err := r.source.FetchRates(ctx)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}

			return err
		}

		payload = p

		return nil
	}); err != nil {
		return Payload{}, err
	}

	return payload, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrConnectivityAbsent) {
		return false
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Code >= http.StatusInternalServerError
	}

	var transportErr *TransportError

	return errors.As(err, &transportErr)
}
