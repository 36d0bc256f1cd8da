// Package sqlite keeps the rate graph and the fetch digest in a single SQLite file
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/internal/storage"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
)

const lastFetchDigestKey = "last_fetch_digest"

var (
	_ storage.RateStore      = (*Store)(nil)
	_ storage.DigestStore    = (*Store)(nil)
	_ storage.MergeCommitter = (*Store)(nil)
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path with WAL journaling
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rates (
			currency TEXT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			conversion_map TEXT NOT NULL,
			balance TEXT NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) ReadAll(ctx context.Context) (kawase.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, currency, conversion_map, balance FROM rates ORDER BY currency ASC")
	if err != nil {
		return nil, fmt.Errorf("query rates: %w", err)
	}
	defer rows.Close()

	var nodes []kawase.Rate
	for rows.Next() {
		var id, currency, conversionMap, balance string
		if err := rows.Scan(&id, &currency, &conversionMap, &balance); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}

		node, err := decodeRate(id, currency, conversionMap, balance)
		if err != nil {
			return nil, fmt.Errorf("decode rate %s: %w", currency, err)
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return kawase.NewTable(nodes), nil
}

func (s *Store) Insert(ctx context.Context, rates ...kawase.Rate) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, rates)
	})
}

func (s *Store) Update(ctx context.Context, rates ...kawase.Rate) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return update(ctx, tx, rates)
	})
}

func (s *Store) UpdateBalance(ctx context.Context, sym label.Symbol, balance decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, "UPDATE rates SET balance = ? WHERE currency = ?", balance.String(), sym.String())
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	return expectRow(res, sym)
}

func (s *Store) LastFetchDigest(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", lastFetchDigestKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("query metadata: %w", err)
	}

	return value, nil
}

func (s *Store) SetLastFetchDigest(ctx context.Context, digest string) error {
	return s.upsertMetadata(ctx, s.db, lastFetchDigestKey, digest)
}

// CommitMerge writes the merged nodes and the digest in one transaction
func (s *Store) CommitMerge(ctx context.Context, res kawase.MergeResult, digest string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insert(ctx, tx, res.Inserted); err != nil {
			return err
		}

		if err := update(ctx, tx, res.Updated); err != nil {
			return err
		}

		return s.upsertMetadata(ctx, tx, lastFetchDigestKey, digest)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) upsertMetadata(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert metadata %s: %w", key, err)
	}

	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func insert(ctx context.Context, tx *sql.Tx, rates []kawase.Rate) error {
	for _, r := range rates {
		conversionMap, err := json.Marshal(r.ConversionMap)
		if err != nil {
			return fmt.Errorf("marshal conversion map %s: %w", r.Currency, err)
		}

		// a node seen again is replaced, identity is the currency code
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rates (currency, id, conversion_map, balance) VALUES (?, ?, ?, ?) ON CONFLICT(currency) DO UPDATE SET conversion_map=excluded.conversion_map, balance=excluded.balance",
			r.Currency.String(), r.ID.String(), string(conversionMap), r.Balance.String(),
		); err != nil {
			return fmt.Errorf("insert rate %s: %w", r.Currency, err)
		}
	}

	return nil
}

func update(ctx context.Context, tx *sql.Tx, rates []kawase.Rate) error {
	for _, r := range rates {
		conversionMap, err := json.Marshal(r.ConversionMap)
		if err != nil {
			return fmt.Errorf("marshal conversion map %s: %w", r.Currency, err)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE rates SET conversion_map = ?, balance = ? WHERE currency = ?",
			string(conversionMap), r.Balance.String(), r.Currency.String(),
		)
		if err != nil {
			return fmt.Errorf("update rate %s: %w", r.Currency, err)
		}

		if err := expectRow(res, r.Currency); err != nil {
			return err
		}
	}

	return nil
}

func expectRow(res sql.Result, sym label.Symbol) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrRateNotFound, sym)
	}

	return nil
}

func decodeRate(id, currency, conversionMap, balance string) (kawase.Rate, error) {
	sym, err := label.Parse(currency)
	if err != nil {
		return kawase.Rate{}, fmt.Errorf("currency: %w", err)
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return kawase.Rate{}, fmt.Errorf("id: %w", err)
	}

	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return kawase.Rate{}, fmt.Errorf("balance: %w", err)
	}

	node := kawase.Rate{
		ID:            uid,
		Currency:      sym,
		ConversionMap: make(map[label.Symbol]kawase.ConversionValue),
		Balance:       amount,
	}

	if err := json.Unmarshal([]byte(conversionMap), &node.ConversionMap); err != nil {
		return kawase.Rate{}, fmt.Errorf("conversion map: %w", err)
	}

	return node, nil
}
