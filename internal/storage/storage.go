// Package storage defines where the rate graph and the fetch digest live between sessions
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

var ErrRateNotFound = errors.New("rate not found")

// RateStore persists currency nodes. Nodes are identified by currency code and never deleted
type RateStore interface {
	ReadAll(ctx context.Context) (kawase.Table, error)
	Insert(ctx context.Context, rates ...kawase.Rate) error
	Update(ctx context.Context, rates ...kawase.Rate) error
	UpdateBalance(ctx context.Context, sym label.Symbol, balance decimal.Decimal) error
}

// DigestStore keeps the digest of the last merged payload
type DigestStore interface {
	LastFetchDigest(ctx context.Context) (string, error)
	SetLastFetchDigest(ctx context.Context, digest string) error
}

// MergeCommitter writes a merge result and its digest in one transaction
type MergeCommitter interface {
	CommitMerge(ctx context.Context, res kawase.MergeResult, digest string) error
}

// CommitMerge persists a merge result and then its digest. When both concerns live in the same store and it
// can commit them together, it does so atomically. Otherwise the digest is written only after every node
// write succeeded, so a failed write never leaves the new digest behind
func CommitMerge(ctx context.Context, rates RateStore, digests DigestStore, res kawase.MergeResult, digest string) error {
	if c, ok := rates.(MergeCommitter); ok && sameStore(rates, digests) {
		if err := c.CommitMerge(ctx, res, digest); err != nil {
			return fmt.Errorf("commit merge: %w", err)
		}

		return nil
	}

	if len(res.Inserted) > 0 {
		if err := rates.Insert(ctx, res.Inserted...); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}

	if len(res.Updated) > 0 {
		if err := rates.Update(ctx, res.Updated...); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}

	if err := digests.SetLastFetchDigest(ctx, digest); err != nil {
		return fmt.Errorf("set last fetch digest: %w", err)
	}

	return nil
}

func sameStore(rates RateStore, digests DigestStore) bool {
	d, ok := digests.(RateStore)
	return ok && d == rates
}
