package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/domain/transactor"
)

var _ transactor.Transactor = (*transactorImpl)(nil)

type transactorImpl struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) *transactorImpl {
	return &transactorImpl{db: db, logger: logger}
}

// WithTx runs function in a transaction. A ctx that already carries one is
// reused and left to its owner to commit.
func (t *transactorImpl) WithTx(ctx context.Context, function func(ctx context.Context) error) (txErr error) {
	if _, ok := extractTx(ctx); ok {
		return function(ctx)
	}

	tx, err := t.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can not begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if txErr != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(); err != nil {
			t.logger.Error("commit", zap.Error(err))
			txErr = fmt.Errorf("commit: %w", err)
		}
	}()

	return function(context.WithValue(ctx, txInjector{}, tx))
}

type txInjector struct{}

func extractTx(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txInjector{}).(*sql.Tx)
	return tx, ok && tx != nil
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, ok := extractTx(ctx); ok {
		return tx
	}
	return db.SQL
}

// inTx runs fn on the ctx transaction, or on a fresh one committed on success.
func (db *DB) inTx(ctx context.Context, fn func(eq execQueryer) error) error {
	if tx, ok := extractTx(ctx); ok {
		return fn(tx)
	}
	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
