package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/selector"
	"github.com/shrek82/jdao/stmt"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNotSingular is returned when a query expects one record but several were found.
	ErrNotSingular = errors.New("record not singular")
	// ErrDuplicateKey is returned when a database unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnknownDialect is returned by Open for a driver without a registered dialect.
	ErrUnknownDialect = errors.New("unknown dialect")
	// ErrSessionClosed is returned when a batched session is used after Commit or Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrBadDestination is returned when rows cannot be mapped into the destination.
	ErrBadDestination = errors.New("bad scan destination")
)

// Errors of the packages a mapper runs through, re-exported for errors.Is checks.
var (
	ErrInvalidEntity = model.ErrInvalidEntity
	ErrNilEntity     = model.ErrNilEntity
	ErrEmptyCriteria = query.ErrEmptyCriteria
	ErrEmptyUpdate   = query.ErrEmptyUpdate
	ErrNoPrimaryKey  = query.ErrNoPrimaryKey
	ErrUnknownColumn = query.ErrUnknownColumn
	ErrUnresolvable  = selector.ErrUnresolvable
	ErrBadBinding    = stmt.ErrBadBinding
)

// NotSingularError is returned by SelectOne when more than one record matches.
type NotSingularError struct {
	Table string
	Count int
}

func (e *NotSingularError) Error() string {
	return fmt.Sprintf("%s: %d records, expected 1", e.Table, e.Count)
}

// Is reports whether the target error is ErrNotSingular.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// IsNotFound reports whether err means no record matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// translate maps driver specific constraint errors onto sentinels while keeping
// the driver error in the chain.
func translate(err error) error {
	if err == nil || !isDuplicate(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 2627 || msErr.Number == 2601
	}
	// sqlite3 reports constraint failures by message
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
