// Package session drives one conversion session: a single goroutine owns the rate table and the selection,
// takes events strictly one at a time, and publishes a State after every step.
//
// An event stays in flight until its fetch and storage work has reported back, the next event is not read
// before that. Storage writes go through one ordered writer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/internal/logging"
	"github.com/robotomize/kawase/internal/storage"
	"github.com/robotomize/kawase/provider"
)

const (
	DefaultRefreshInterval = 5 * time.Second

	inboxSize  = 64
	writerSize = 64
)

var (
	ErrNoSelection    = errors.New("no currency pair selected")
	ErrStopped        = errors.New("session stopped")
	ErrAlreadyRunning = errors.New("session already running")
	ErrConfigNotValid = errors.New("session config is not valid")
)

type Config struct {
	Source   provider.Source
	Rates    storage.RateStore
	Digests  storage.DigestStore
	Detector *kawase.ChangeDetector
	Merge    kawase.MergeOptions
	// RefreshInterval defaults to DefaultRefreshInterval
	RefreshInterval time.Duration
}

type outcome int

const (
	outcomeReady outcome = iota
	outcomeOffline
	outcomeFailed
)

// completion is what a fetch worker hands back to the loop
type completion struct {
	outcome outcome
	table   kawase.Table
	err     error
}

type subscriber struct {
	id int
	fn func(State)
}

type Controller struct {
	cfg         Config
	inbox       chan Event
	completions chan completion
	writer      *writer
	done        chan struct{}
	running     int32

	// owned by the loop goroutine
	table     kawase.Table
	loaded    bool
	selection *kawase.Selection
	busy      bool

	mu     sync.RWMutex
	state  State
	subs   []subscriber
	nextID int
}

func New(cfg Config) (*Controller, error) {
	if cfg.Source == nil || cfg.Rates == nil || cfg.Digests == nil || cfg.Detector == nil {
		return nil, fmt.Errorf("%w: source, rate store, digest store and change detector are required", ErrConfigNotValid)
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	return &Controller{
		cfg:         cfg,
		inbox:       make(chan Event, inboxSize),
		completions: make(chan completion, 1),
		writer:      newWriter(writerSize),
		done:        make(chan struct{}),
		state:       Uninitialized{},
	}, nil
}

// State returns the last published state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Subscribe registers fn for every state published from now on. fn runs on the loop goroutine and must not
// block or dispatch. The returned func unregisters it
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch enqueues ev. It blocks only while the inbox is full
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	select {
	case c.inbox <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the event loop. It returns once ctx is done: the event in flight completes, the graph is flushed
// to the rate store and events still queued are dropped
func (c *Controller) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	logger := logging.FromContext(ctx)
	logger.Info("session started", slog.Duration("refresh_interval", c.cfg.RefreshInterval))

	// fetches and writes are never cancelled half way
	work := context.WithoutCancel(ctx)
	c.writer.start(work)

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()
	go c.tick(ctx, ticker.C)

	for {
		var inbox <-chan Event
		if !c.busy {
			inbox = c.inbox
		}

		select {
		case <-ctx.Done():
			if c.busy {
				c.complete(work, <-c.completions)
			}

			logger.Info("session stopping")

			return c.shutdown(work)
		case ev := <-inbox:
			c.handle(work, ev)
		case comp := <-c.completions:
			c.complete(work, comp)
		}
	}
}

// tick feeds RefreshTick events into the loop. While Dispatch blocks on a full inbox,
// further ticks coalesce in the ticker channel; a tick already queued is never dropped
func (c *Controller) tick(ctx context.Context, ch <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := c.Dispatch(ctx, RefreshTick{}); err != nil {
				return
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case RequestRates:
		c.publish(Loading{})
		c.fetch(ctx)
	case RefreshTick:
		c.publish(AutoRefreshing{Info: c.info()})
		c.fetch(ctx)
	case ChangeSellAmount:
		c.change(ctx, func(s kawase.Selection) (kawase.Selection, error) {
			return s.ChangeSellAmount(c.table, e.Amount)
		})
	case ChangeSellCurrency:
		c.change(ctx, func(s kawase.Selection) (kawase.Selection, error) {
			return s.ChangeSellCurrency(c.table, e.Currency)
		})
	case ChangeReceiveCurrency:
		c.change(ctx, func(s kawase.Selection) (kawase.Selection, error) {
			return s.ChangeReceiveCurrency(c.table, e.Currency)
		})
	case Settle:
		c.settle(ctx)
	default:
		logging.FromContext(ctx).Warn("unknown event", slog.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (c *Controller) fetch(ctx context.Context) {
	c.busy = true

	prev, loaded := c.table, c.loaded
	go func() {
		c.completions <- c.refresh(ctx, prev, loaded)
	}()
}

// refresh runs off the loop goroutine on a snapshot it does not share
func (c *Controller) refresh(ctx context.Context, prev kawase.Table, loaded bool) completion {
	logger := logging.FromContext(ctx)

	payload, err := c.cfg.Source.FetchRates(ctx)
	if err != nil {
		if !errors.Is(err, provider.ErrConnectivityAbsent) {
			return completion{outcome: outcomeFailed, err: fmt.Errorf("fetch rates: %w", err)}
		}

		if !loaded {
			if prev, err = c.cfg.Rates.ReadAll(ctx); err != nil {
				return completion{outcome: outcomeFailed, err: fmt.Errorf("read rates: %w", err)}
			}
		}

		logger.Warn("source is offline, using persisted rates", slog.Int("rates", len(prev)))

		return completion{outcome: outcomeOffline, table: prev}
	}

	if !loaded {
		if prev, err = c.cfg.Rates.ReadAll(ctx); err != nil {
			return completion{outcome: outcomeFailed, err: fmt.Errorf("read rates: %w", err)}
		}
	}

	last, err := c.cfg.Digests.LastFetchDigest(ctx)
	if err != nil {
		return completion{outcome: outcomeFailed, err: fmt.Errorf("last fetch digest: %w", err)}
	}

	digest, changed, err := c.cfg.Detector.Changed(payload, last)
	if err != nil {
		return completion{outcome: outcomeFailed, err: fmt.Errorf("digest: %w", err)}
	}

	// a known digest over an empty store still has to be merged
	if !changed && len(prev) > 0 {
		logger.Debug("rates unchanged", slog.String("digest", digest))
		return completion{outcome: outcomeReady, table: prev}
	}

	res, err := kawase.Merge(prev, payload, c.cfg.Merge)
	if err != nil {
		return completion{outcome: outcomeFailed, err: fmt.Errorf("merge: %w", err)}
	}

	if err := <-c.writer.submit(func(ctx context.Context) error {
		return storage.CommitMerge(ctx, c.cfg.Rates, c.cfg.Digests, res, digest)
	}); err != nil {
		return completion{outcome: outcomeFailed, err: fmt.Errorf("commit merge: %w", err)}
	}

	logger.Info("rates merged",
		slog.String("base", payload.Base.String()),
		slog.String("date", payload.Date),
		slog.Int("inserted", len(res.Inserted)),
		slog.Int("updated", len(res.Updated)),
	)

	return completion{outcome: outcomeReady, table: res.Table}
}

func (c *Controller) complete(ctx context.Context, comp completion) {
	c.busy = false

	switch comp.outcome {
	case outcomeFailed:
		logging.FromContext(ctx).Error("refresh failed", slog.Any("error", comp.err))
		c.publish(Failed{Err: comp.err})
	case outcomeOffline:
		c.table, c.loaded = comp.table, true
		if len(c.table) == 0 {
			c.publish(Offline{})
			return
		}

		if err := c.reselect(); err != nil {
			logging.FromContext(ctx).Warn("no selection", slog.Any("error", err))
		}

		info := c.info()
		c.publish(Offline{Info: &info})
	case outcomeReady:
		c.table, c.loaded = comp.table, true
		notice := c.reselect()
		c.publish(Ready{Info: c.info(), Notice: notice})
	}
}

// reselect keeps the selection valid for the current table. A nil selection gets the defaults
func (c *Controller) reselect() error {
	var (
		sel kawase.Selection
		err error
	)

	if c.selection == nil {
		sel, err = kawase.DefaultSelection(c.table)
	} else {
		sel, err = c.selection.Revalidate(c.table)
	}

	if err != nil {
		c.selection = nil
		return err
	}

	c.selection = &sel

	return nil
}

func (c *Controller) change(ctx context.Context, fn func(s kawase.Selection) (kawase.Selection, error)) {
	if c.selection == nil {
		c.publish(Ready{Info: c.info(), Notice: ErrNoSelection})
		return
	}

	sel, err := fn(*c.selection)
	if err != nil {
		logging.FromContext(ctx).Debug("input rejected", slog.Any("error", err))
		c.publish(Ready{Info: c.info(), Notice: err})
		return
	}

	c.selection = &sel
	c.publish(Ready{Info: c.info()})
}

func (c *Controller) settle(ctx context.Context) {
	logger := logging.FromContext(ctx)

	if c.selection == nil {
		c.publish(Ready{Info: c.info(), Notice: ErrNoSelection})
		return
	}

	res, err := kawase.Settle(c.table, *c.selection)
	if err != nil {
		if errors.Is(err, kawase.ErrInvariantViolation) {
			logger.Error("settle", slog.Any("error", err))
			c.publish(Failed{Err: err})
			return
		}

		c.publish(Ready{Info: c.info(), Notice: err})
		return
	}

	c.table = res.Table
	c.selection = res.Next

	debited, credited := res.Debited, res.Credited
	c.writer.submit(func(ctx context.Context) error {
		var result error
		for _, r := range []kawase.Rate{debited, credited} {
			if err := c.cfg.Rates.UpdateBalance(ctx, r.Currency, r.Balance); err != nil {
				result = multierror.Append(result, fmt.Errorf("update balance %s: %w", r.Currency, err))
			}
		}

		if result != nil {
			logger.Error("persist balances", slog.Any("error", result))
		}

		return result
	})

	logger.Info("settled", slog.String("message", res.Message))
	c.publish(Ready{Info: c.info(), Message: res.Message, Notice: res.Notice})
}

func (c *Controller) shutdown(ctx context.Context) error {
	var result error

	if c.loaded && len(c.table) > 0 {
		table := c.table
		if err := <-c.writer.submit(func(ctx context.Context) error {
			return c.cfg.Rates.Update(ctx, table...)
		}); err != nil {
			result = multierror.Append(result, fmt.Errorf("flush rates: %w", err))
		}
	}

	c.writer.stop()

	if result != nil {
		logging.FromContext(ctx).Error("session flush", slog.Any("error", result))
	}

	return result
}

func (c *Controller) info() kawase.ExchangeRateInfo {
	info := kawase.ExchangeRateInfo{Rates: c.table}
	if c.selection != nil {
		sel := *c.selection
		info.Selection = &sel
	}

	return info
}

func (c *Controller) publish(st State) {
	c.mu.Lock()
	c.state = st
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(st)
	}
}
