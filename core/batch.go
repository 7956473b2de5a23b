package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/stmt"
)

// BatchSession is a session whose writes are queued and executed on Flush,
// inside one transaction, reusing a prepared statement per compiled statement.
// Reads flush the queue first.
type BatchSession interface {
	Session
	ID() string
	// Flush executes the queued writes and returns the rows they affected.
	Flush(ctx context.Context) (int64, error)
	// Commit flushes what is still queued and commits.
	Commit(ctx context.Context) error
	// Close rolls back unless committed and releases prepared statements. It is
	// safe to call more than once.
	Close() error
}

type pending struct {
	call *Call
}

type batchSession struct {
	*session
	tx       *sql.Tx
	prepared map[string]*sql.Stmt
	queue    []pending
	done     bool
}

// BatchSession opens a batched session. The caller must Close it.
func (db *DB) BatchSession(ctx context.Context) (BatchSession, error) {
	start := time.Now()
	tx, err := db.pool.BeginTx(ctx, nil)
	db.logger.SQL("BEGIN", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	db.batchOpens.Add(1)

	b := &batchSession{
		session:  newSession(db, tx),
		tx:       tx,
		prepared: make(map[string]*sql.Stmt),
	}
	b.session.id = uuid.NewString()
	b.session.run = b.route
	return b, nil
}

func (b *batchSession) ID() string { return b.id }

// route queues writes and runs reads on the transaction after flushing.
func (b *batchSession) route(ctx context.Context, call *Call) (*Result, error) {
	if b.done {
		return nil, ErrSessionClosed
	}
	if call.Kind == query.KindExec {
		b.queue = append(b.queue, pending{call: call})
		return &Result{}, nil
	}
	if _, err := b.Flush(ctx); err != nil {
		return nil, err
	}
	return b.execute(ctx, call)
}

func (b *batchSession) Flush(ctx context.Context) (int64, error) {
	if b.done {
		return 0, ErrSessionClosed
	}
	var total int64
	for len(b.queue) > 0 {
		call := b.queue[0].call
		b.queue = b.queue[1:]

		ps, err := b.prepare(ctx, call.Statement)
		if err != nil {
			return total, err
		}
		start := time.Now()
		res, err := ps.ExecContext(ctx, call.Args...)
		b.db.logCall(call, time.Since(start))
		if err != nil {
			return total, fmt.Errorf("%s: %w", call.Statement.ID, translate(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("%s: rows affected: %w", call.Statement.ID, err)
		}
		total += n
	}
	return total, nil
}

func (b *batchSession) prepare(ctx context.Context, st *stmt.Statement) (*sql.Stmt, error) {
	if ps, ok := b.prepared[st.ID]; ok {
		return ps, nil
	}
	ps, err := b.tx.PrepareContext(ctx, st.SQL)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", st.ID, err)
	}
	b.prepared[st.ID] = ps
	return ps, nil
}

func (b *batchSession) Commit(ctx context.Context) error {
	if _, err := b.Flush(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := b.tx.Commit()
	b.db.logger.SQL("COMMIT", time.Since(start))
	b.done = true
	if err != nil {
		return fmt.Errorf("commit batch %s: %w", b.id, err)
	}
	return nil
}

func (b *batchSession) Close() error {
	var errs []error
	for id, ps := range b.prepared {
		errs = append(errs, ps.Close())
		delete(b.prepared, id)
	}
	if !b.done {
		b.done = true
		b.queue = nil
		start := time.Now()
		err := b.tx.Rollback()
		b.db.logger.SQL("ROLLBACK", time.Since(start))
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
