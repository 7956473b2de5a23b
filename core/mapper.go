package core

import (
	"context"
	"fmt"

	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/stmt"
)

// Repository is the generic data-access contract for entity T. Criteria
// arguments are entities whose non-null fields are ANDed as equality predicates.
type Repository[T any] interface {
	Insert(ctx context.Context, entity *T) (int64, error)
	BatchInsert(ctx context.Context, entities []*T) int64
	UpdateByID(ctx context.Context, entity *T) (int64, error)
	Update(ctx context.Context, entity *T) (int64, error)
	Delete(ctx context.Context, criteria *T) (int64, error)
	DeleteByPrimaryKey(ctx context.Context, id any) (int64, error)
	SelectByPrimaryKey(ctx context.Context, id any) (*T, error)
	SelectAll(ctx context.Context, orderBy string) ([]*T, error)
	Select(ctx context.Context, criteria *T) ([]*T, error)
	SelectOne(ctx context.Context, criteria *T) (*T, error)
	SelectByColumn(ctx context.Context, column string, ids []any) ([]*T, error)
	SelectByIDs(ctx context.Context, ids []any) ([]*T, error)
	CountByExample(ctx context.Context, criteria *T) (int64, error)
	Exist(ctx context.Context, criteria *T) (bool, error)
	Upsert(ctx context.Context, entity *T) (int64, error)
	Query(ctx context.Context, build func(*query.Fragments) *query.Fragments, criteria any) ([]*T, error)
	SelectByWrapper(ctx context.Context, w *query.Wrapper[T]) ([]*T, error)
}

var _ Repository[struct{ ID int64 }] = (*Mapper[struct{ ID int64 }])(nil)

// Mapper implements Repository for T on a DB.
type Mapper[T any] struct {
	db        *DB
	session   Session
	table     *model.Table
	openBatch func(ctx context.Context) (BatchSession, error)
}

// NewMapper creates a mapper for T running on the DB's ambient session. It
// fails when T cannot be mapped to a table.
func NewMapper[T any](db *DB) (*Mapper[T], error) {
	t, err := model.TableFor[T](db.tables)
	if err != nil {
		return nil, err
	}
	return &Mapper[T]{
		db:        db,
		session:   db.Session(),
		table:     t,
		openBatch: db.BatchSession,
	}, nil
}

// WithSession returns a copy of the mapper running on s, typically the
// session handed out by DB.Transaction.
func (m *Mapper[T]) WithSession(s Session) *Mapper[T] {
	c := *m
	c.session = s
	return &c
}

// Table returns the metadata of T.
func (m *Mapper[T]) Table() *model.Table {
	return m.table
}

// Wrapper starts a fluent predicate builder for T bound to the DB's dialect.
func (m *Mapper[T]) Wrapper() *query.Wrapper[T] {
	return query.NewWrapper[T](m.db.tables)
}

// statement generates and registers the statement of op.
func (m *Mapper[T]) statement(op query.Op, in query.Input) (*stmt.Statement, any, error) {
	out, err := query.Build(op, in, m.table)
	if err != nil {
		return nil, nil, err
	}
	s, err := m.db.stmts.Register(stmt.Spec{
		Op:         op.String(),
		Table:      m.table.Name,
		SQL:        out.SQL,
		Param:      out.Param,
		ResultType: m.table.Type,
		Meta:       m.table,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", op, m.table.Name, err)
	}
	return s, out.Param, nil
}

func (m *Mapper[T]) exec(ctx context.Context, sess Session, op query.Op, in query.Input) (int64, error) {
	s, param, err := m.statement(op, in)
	if err != nil {
		return 0, err
	}
	return sess.Exec(ctx, s, param)
}

func (m *Mapper[T]) list(ctx context.Context, op query.Op, in query.Input) ([]*T, error) {
	s, param, err := m.statement(op, in)
	if err != nil {
		return nil, err
	}
	var items []*T
	if err := m.session.QueryRows(ctx, s, param, &items); err != nil {
		return nil, err
	}
	if err := afterFind(items); err != nil {
		return nil, err
	}
	return items, nil
}

// Insert writes every non-auto field of entity.
func (m *Mapper[T]) Insert(ctx context.Context, entity *T) (int64, error) {
	if err := beforeInsert(entity); err != nil {
		return 0, err
	}
	return m.exec(ctx, m.session, query.OpInsert, query.Input{Entity: entity})
}

// BatchInsert inserts entities in one batched session and returns how many
// were attempted. Any failure is logged, the batch is rolled back and 0 is
// returned: a zero result does not tell an empty input from a failed batch.
func (m *Mapper[T]) BatchInsert(ctx context.Context, entities []*T) int64 {
	if len(entities) == 0 {
		return 0
	}
	n, err := m.batchInsert(ctx, entities)
	if err != nil {
		m.db.logger.Error("batch insert %s: %v", m.table.Name, err)
		return 0
	}
	return n
}

func (m *Mapper[T]) batchInsert(ctx context.Context, entities []*T) (int64, error) {
	b, err := m.openBatch(ctx)
	if err != nil {
		return 0, err
	}
	defer b.Close()

	for _, e := range entities {
		if err := beforeInsert(e); err != nil {
			return 0, err
		}
		if _, err := m.exec(ctx, b, query.OpBatchInsert, query.Input{Entity: e}); err != nil {
			return 0, err
		}
	}
	if _, err := b.Flush(ctx); err != nil {
		return 0, err
	}
	if err := b.Commit(ctx); err != nil {
		return 0, err
	}
	return int64(len(entities)), nil
}

// UpdateByID sets every non-key field, null or not, on the row with entity's key.
func (m *Mapper[T]) UpdateByID(ctx context.Context, entity *T) (int64, error) {
	if err := beforeUpdate(entity); err != nil {
		return 0, err
	}
	return m.exec(ctx, m.session, query.OpUpdate, query.Input{Entity: entity})
}

// Update sets only the non-null, non-key fields of entity.
func (m *Mapper[T]) Update(ctx context.Context, entity *T) (int64, error) {
	if err := beforeUpdate(entity); err != nil {
		return 0, err
	}
	return m.exec(ctx, m.session, query.OpUpdateSelective, query.Input{Entity: entity})
}

// Delete removes the rows matching criteria. Criteria without a non-null
// field fail with ErrEmptyCriteria.
func (m *Mapper[T]) Delete(ctx context.Context, criteria *T) (int64, error) {
	return m.exec(ctx, m.session, query.OpDelete, query.Input{Entity: criteria})
}

func (m *Mapper[T]) DeleteByPrimaryKey(ctx context.Context, id any) (int64, error) {
	return m.exec(ctx, m.session, query.OpDeleteByID, query.Input{ID: id})
}

// SelectByPrimaryKey returns ErrRecordNotFound when no row has the key.
func (m *Mapper[T]) SelectByPrimaryKey(ctx context.Context, id any) (*T, error) {
	items, err := m.list(ctx, query.OpSelectByID, query.Input{ID: id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrRecordNotFound
	}
	return items[0], nil
}

// SelectAll returns every row, ordered by orderBy (used verbatim) or by key descending.
func (m *Mapper[T]) SelectAll(ctx context.Context, orderBy string) ([]*T, error) {
	return m.list(ctx, query.OpSelectAll, query.Input{OrderBy: orderBy})
}

// Select returns the rows matching criteria; nil criteria match every row.
func (m *Mapper[T]) Select(ctx context.Context, criteria *T) ([]*T, error) {
	return m.list(ctx, query.OpSelect, query.Input{Entity: criteria})
}

// SelectOne returns the single row matching criteria.
func (m *Mapper[T]) SelectOne(ctx context.Context, criteria *T) (*T, error) {
	items, err := m.Select(ctx, criteria)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return items[0], nil
	}
	return nil, &NotSingularError{Table: m.table.Name, Count: len(items)}
}

// SelectByColumn returns the rows whose column is one of ids. An empty ids
// applies no filter and returns every row.
func (m *Mapper[T]) SelectByColumn(ctx context.Context, column string, ids []any) ([]*T, error) {
	return m.list(ctx, query.OpSelectIn, query.Input{Column: column, IDs: ids})
}

// SelectByIDs is SelectByColumn on the primary key.
func (m *Mapper[T]) SelectByIDs(ctx context.Context, ids []any) ([]*T, error) {
	column := model.DefaultPrimaryKey
	if m.table.PKField != nil {
		column = m.table.PKField.Column
	}
	return m.SelectByColumn(ctx, column, ids)
}

func (m *Mapper[T]) CountByExample(ctx context.Context, criteria *T) (int64, error) {
	s, param, err := m.statement(query.OpCount, query.Input{Entity: criteria})
	if err != nil {
		return 0, err
	}
	var n int64
	if err := m.session.QueryScalar(ctx, s, param, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Exist reports whether a row matches criteria.
func (m *Mapper[T]) Exist(ctx context.Context, criteria *T) (bool, error) {
	n, err := m.CountByExample(ctx, criteria)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Upsert updates entity selectively when a row matches it, else inserts it.
// The check and the write are two round trips and not atomic.
func (m *Mapper[T]) Upsert(ctx context.Context, entity *T) (int64, error) {
	ok, err := m.Exist(ctx, entity)
	if err != nil {
		return 0, err
	}
	if ok {
		return m.Update(ctx, entity)
	}
	return m.Insert(ctx, entity)
}

// Query runs a statement shaped by build, which receives the select list and
// FROM table. criteria is a *T or query.Params binding the #{...} names build writes.
func (m *Mapper[T]) Query(ctx context.Context, build func(*query.Fragments) *query.Fragments, criteria any) ([]*T, error) {
	in := query.Input{Custom: build}
	switch c := criteria.(type) {
	case nil:
	case query.Params:
		in.Params = c
	case map[string]any:
		in.Params = c
	default:
		in.Entity = c
	}
	return m.list(ctx, query.OpSelectCustom, in)
}

// SelectByWrapper returns the rows matching the wrapper's predicates, in its order.
func (m *Mapper[T]) SelectByWrapper(ctx context.Context, w *query.Wrapper[T]) ([]*T, error) {
	in := query.Input{}
	if w != nil {
		in.Wrapper = w
	}
	return m.list(ctx, query.OpSelectWrapper, in)
}
