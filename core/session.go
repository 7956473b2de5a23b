package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/stmt"
)

// Session executes compiled statements.
type Session interface {
	// Exec runs a write and returns the rows affected.
	Exec(ctx context.Context, s *stmt.Statement, param any) (int64, error)
	// QueryRows maps every row into dest, a pointer to a slice of entities.
	QueryRows(ctx context.Context, s *stmt.Statement, param any, dest any) error
	// QueryScalar scans the first column of the first row into dest.
	QueryScalar(ctx context.Context, s *stmt.Statement, param any, dest any) error
}

// Executor defines the interface for executing SQL queries and commands.
// It is implemented by *sql.DB and *sql.Tx.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// session runs calls through the DB's middleware chain on an executor.
type session struct {
	db  *DB
	ex  Executor
	id  string
	run Handler // terminal handler, defaults to execute
}

func newSession(db *DB, ex Executor) *session {
	s := &session{db: db, ex: ex}
	s.run = s.execute
	return s
}

func (s *session) Exec(ctx context.Context, st *stmt.Statement, param any) (int64, error) {
	res, err := s.do(ctx, st, param, query.KindExec, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (s *session) QueryRows(ctx context.Context, st *stmt.Statement, param any, dest any) error {
	_, err := s.do(ctx, st, param, query.KindRows, dest)
	return err
}

func (s *session) QueryScalar(ctx context.Context, st *stmt.Statement, param any, dest any) error {
	_, err := s.do(ctx, st, param, query.KindScalar, dest)
	return err
}

func (s *session) do(ctx context.Context, st *stmt.Statement, param any, kind query.Kind, dest any) (*Result, error) {
	args, err := st.Args(param)
	if err != nil {
		return nil, err
	}
	call := &Call{
		Statement: st,
		Param:     param,
		Args:      args,
		Kind:      kind,
		Dest:      dest,
		SessionID: s.id,
	}
	res, err := chain(s.db.middlewareChain(), s.run)(ctx, call)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{Data: dest}
	}
	return res, nil
}

// execute is the end of the chain: it talks to the database.
func (s *session) execute(ctx context.Context, call *Call) (*Result, error) {
	st := call.Statement
	start := time.Now()
	switch call.Kind {
	case query.KindExec:
		res, err := s.ex.ExecContext(ctx, st.SQL, call.Args...)
		s.db.logCall(call, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.ID, translate(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%s: rows affected: %w", st.ID, err)
		}
		return &Result{RowsAffected: n}, nil

	default:
		rows, err := s.ex.QueryContext(ctx, st.SQL, call.Args...)
		s.db.logCall(call, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.ID, err)
		}
		defer rows.Close()

		if call.Kind == query.KindScalar {
			if err := scanScalar(rows, call.Dest); err != nil {
				return nil, fmt.Errorf("%s: %w", st.ID, err)
			}
			return &Result{RowsAffected: 1, Data: call.Dest}, nil
		}
		n, err := scanRows(rows, s.db.tables, call.Dest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.ID, err)
		}
		return &Result{RowsAffected: n, Data: call.Dest}, nil
	}
}
