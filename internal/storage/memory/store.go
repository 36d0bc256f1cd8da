// Package memory is a process-local store used when nothing has to survive the session, and in tests
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/internal/storage"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

var (
	_ storage.RateStore   = (*Store)(nil)
	_ storage.DigestStore = (*Store)(nil)
)

type Store struct {
	mtx    sync.RWMutex
	rates  map[label.Symbol]kawase.Rate
	digest string
}

func New(seed ...kawase.Rate) *Store {
	s := &Store{rates: make(map[label.Symbol]kawase.Rate, len(seed))}
	for _, r := range seed {
		s.rates[r.Currency] = r.Clone()
	}

	return s
}

func (s *Store) ReadAll(_ context.Context) (kawase.Table, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	nodes := make([]kawase.Rate, 0, len(s.rates))
	for _, r := range s.rates {
		nodes = append(nodes, r)
	}

	return kawase.NewTable(nodes), nil
}

func (s *Store) Insert(_ context.Context, rates ...kawase.Rate) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, r := range rates {
		s.rates[r.Currency] = r.Clone()
	}

	return nil
}

func (s *Store) Update(_ context.Context, rates ...kawase.Rate) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, r := range rates {
		if _, ok := s.rates[r.Currency]; !ok {
			return fmt.Errorf("%w: %s", storage.ErrRateNotFound, r.Currency)
		}
	}

	for _, r := range rates {
		s.rates[r.Currency] = r.Clone()
	}

	return nil
}

func (s *Store) UpdateBalance(_ context.Context, sym label.Symbol, balance decimal.Decimal) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	r, ok := s.rates[sym]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrRateNotFound, sym)
	}

	r.Balance = balance
	s.rates[sym] = r

	return nil
}

func (s *Store) LastFetchDigest(_ context.Context) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.digest, nil
}

func (s *Store) SetLastFetchDigest(_ context.Context, digest string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.digest = digest

	return nil
}
