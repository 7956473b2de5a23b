package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jdao/logger"
	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/selector"
)

type account struct {
	ID    int64 `jdao:"pk auto"`
	Name  string
	Email string
}

type hooked struct {
	ID    int64 `jdao:"pk auto"`
	Name  string
	found bool
}

func (h *hooked) BeforeInsert() error {
	if h.Name == "" {
		return errors.New("name required")
	}
	h.Name = strings.ToLower(h.Name)
	return nil
}

func (h *hooked) AfterFind() error {
	h.found = true
	return nil
}

const accountCols = "`id` AS `ID`, `name` AS `Name`, `email` AS `Email`"

func newMockDB(t *testing.T, l logger.Logger) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	if l == nil {
		l = logger.Nop()
	}
	db, err := OpenDB(sqlDB, "mysql", &Options{Logger: l})
	require.NoError(t, err)
	return db, mock
}

func newAccounts(t *testing.T, db *DB) *Mapper[account] {
	t.Helper()
	m, err := NewMapper[account](db)
	require.NoError(t, err)
	return m
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ID", "Name", "Email"})
}

func TestNewMapperRejectsInvalidEntity(t *testing.T) {
	db, _ := newMockDB(t, nil)
	_, err := NewMapper[int](db)
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

func TestUpsertInsertsWhenMissing(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectQuery("SELECT COUNT(*) FROM `account` WHERE `name` = ?").
		WithArgs("Ann").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(0)))
	mock.ExpectExec("INSERT INTO `account` (`name`, `email`) VALUES (?, ?)").
		WithArgs("Ann", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := m.Upsert(context.Background(), &account{Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatesWhenPresent(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectQuery("SELECT COUNT(*) FROM `account` WHERE `id` = ? AND `name` = ?").
		WithArgs(int64(5), "Ann").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE `account` SET `name` = ? WHERE `id` = ?").
		WithArgs("Ann", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := m.Upsert(context.Background(), &account{ID: 5, Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByIDSetsEveryField(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectExec("UPDATE `account` SET `name` = ?, `email` = ? WHERE `id` = ?").
		WithArgs("Ann", "", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := m.UpdateByID(context.Background(), &account{ID: 3, Name: "Ann"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertEmptyNeverOpensSession(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)
	opened := false
	m.openBatch = func(ctx context.Context) (BatchSession, error) {
		opened = true
		return db.BatchSession(ctx)
	}

	assert.Equal(t, int64(0), m.BatchInsert(context.Background(), nil))
	assert.Equal(t, int64(0), m.BatchInsert(context.Background(), []*account{}))
	assert.False(t, opened)
	assert.Equal(t, int64(0), db.BatchOpens())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsert(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	insert := "INSERT INTO `account` (`name`, `email`) VALUES (?, ?)"
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insert)
	prep.ExpectExec().WithArgs("a", "a@x").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b", "b@x").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n := m.BatchInsert(context.Background(), []*account{
		{Name: "a", Email: "a@x"},
		{Name: "b", Email: "b@x"},
	})
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), db.BatchOpens())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	db, mock := newMockDB(t, logger.New(&buf, logger.LogLevelError, logger.LogFormatText))
	m := newAccounts(t, db)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO `account` (`name`, `email`) VALUES (?, ?)").
		ExpectExec().WithArgs("a", "").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	n := m.BatchInsert(context.Background(), []*account{{Name: "a"}, {Name: "b"}})
	assert.Equal(t, int64(0), n)
	assert.Contains(t, buf.String(), "batch insert account")
	assert.Contains(t, buf.String(), "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectOne(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)
	sqlStr := "SELECT " + accountCols + " FROM `account` WHERE `name` = ?"

	mock.ExpectQuery(sqlStr).WithArgs("Ann").
		WillReturnRows(accountRows().AddRow(int64(1), "Ann", "a@x"))
	got, err := m.SelectOne(context.Background(), &account{Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, &account{ID: 1, Name: "Ann", Email: "a@x"}, got)

	mock.ExpectQuery(sqlStr).WithArgs("Ann").
		WillReturnRows(accountRows().AddRow(int64(1), "Ann", "a@x").AddRow(int64(2), "Ann", "b@x"))
	_, err = m.SelectOne(context.Background(), &account{Name: "Ann"})
	assert.ErrorIs(t, err, ErrNotSingular)
	var nse *NotSingularError
	require.True(t, errors.As(err, &nse))
	assert.Equal(t, 2, nse.Count)

	mock.ExpectQuery(sqlStr).WithArgs("Ann").WillReturnRows(accountRows())
	_, err = m.SelectOne(context.Background(), &account{Name: "Ann"})
	assert.True(t, IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectByPrimaryKey(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)
	sqlStr := "SELECT " + accountCols + " FROM `account` WHERE `id` = ?"

	mock.ExpectQuery(sqlStr).WithArgs(int64(9)).WillReturnRows(accountRows().AddRow(int64(9), "Zed", nil))
	got, err := m.SelectByPrimaryKey(context.Background(), int64(9))
	require.NoError(t, err)
	assert.Equal(t, "Zed", got.Name)
	assert.Equal(t, "", got.Email)

	mock.ExpectQuery(sqlStr).WithArgs(int64(10)).WillReturnRows(accountRows())
	_, err = m.SelectByPrimaryKey(context.Background(), int64(10))
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectByIDs(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectQuery("SELECT "+accountCols+" FROM `account` WHERE `id` IN (?, ?)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(accountRows().AddRow(int64(1), "a", "").AddRow(int64(2), "b", ""))
	items, err := m.SelectByIDs(context.Background(), []any{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// an empty id set is no filter at all
	mock.ExpectQuery("SELECT " + accountCols + " FROM `account` WHERE 1=1").
		WillReturnRows(accountRows().AddRow(int64(1), "a", ""))
	items, err = m.SelectByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = m.SelectByColumn(context.Background(), "nope", []any{1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAllAndWrapper(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectQuery("SELECT " + accountCols + " FROM `account` ORDER BY `id` DESC").
		WillReturnRows(accountRows())
	_, err := m.SelectAll(context.Background(), "")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT " + accountCols + " FROM `account` WHERE `name` LIKE '%an%' ORDER BY `email` ASC").
		WillReturnRows(accountRows().AddRow(int64(1), "Ann", ""))
	w := m.Wrapper().
		Like(selector.Field[account]("Name"), "an").
		OrderByAsc(selector.Ptr(func(a *account) *string { return &a.Email }))
	items, err := m.SelectByWrapper(context.Background(), w)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryCustom(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectQuery("SELECT `name` FROM `account` WHERE `id` > ? LIMIT 5").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ann"))

	items, err := m.Query(context.Background(), func(f *query.Fragments) *query.Fragments {
		f.Select = "`name`"
		f.Tail = "LIMIT 5"
		return f.And("`id` > " + query.Bind("min"))
	}, query.Params{"min": int64(10)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ann", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRequiresCriteria(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	_, err := m.Delete(context.Background(), &account{})
	assert.ErrorIs(t, err, ErrEmptyCriteria)

	mock.ExpectExec("DELETE FROM `account` WHERE `email` = ?").WithArgs("x@y").
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := m.Delete(context.Background(), &account{Email: "x@y"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("DELETE FROM `account` WHERE `id` = ?").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = m.DeleteByPrimaryKey(context.Background(), 7)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateKeyMapping(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	mock.ExpectExec("INSERT INTO `account` (`name`, `email`) VALUES (?, ?)").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Ann'"})

	_, err := m.Insert(context.Background(), &account{Name: "Ann"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	var myErr *mysql.MySQLError
	assert.True(t, errors.As(err, &myErr))
}

func TestStatementReuse(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE `account` SET `name` = ? WHERE `id` = ?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `account` SET `name` = ? WHERE `id` = ?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `account` SET `email` = ? WHERE `id` = ?").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := m.Update(ctx, &account{ID: 1, Name: "a"})
	require.NoError(t, err)
	_, err = m.Update(ctx, &account{ID: 2, Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, db.Statements().Len())

	_, err = m.Update(ctx, &account{ID: 3, Email: "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, db.Statements().Len())
	assert.Equal(t, int64(1), db.Tables().Parses())

	_, err = m.Update(ctx, &account{ID: 4})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHooks(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m, err := NewMapper[hooked](db)
	require.NoError(t, err)

	_, err = m.Insert(context.Background(), &hooked{})
	assert.EqualError(t, err, "name required")

	mock.ExpectExec("INSERT INTO `hooked` (`name`) VALUES (?)").WithArgs("ann").
		WillReturnResult(sqlmock.NewResult(1, 1))
	_, err = m.Insert(context.Background(), &hooked{Name: "ANN"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT `id` AS `ID`, `name` AS `Name` FROM `hooked` ORDER BY `id` DESC").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "Name"}).AddRow(int64(1), "ann"))
	items, err := m.SelectAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].found)

	_, err = m.Insert(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `account` WHERE `id` = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := db.Transaction(ctx, func(s Session) error {
		_, err := m.WithSession(s).DeleteByPrimaryKey(ctx, 1)
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = db.Transaction(ctx, func(s Session) error {
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	assert.NoError(t, mock.ExpectationsWereMet())
}

type recorder struct {
	name  string
	trace *[]string
}

func (r *recorder) Name() string      { return r.name }
func (r *recorder) Init(db *DB) error { return nil }
func (r *recorder) Shutdown() error   { *r.trace = append(*r.trace, "stop "+r.name); return nil }
func (r *recorder) Process(ctx context.Context, call *Call, next Handler) (*Result, error) {
	*r.trace = append(*r.trace, r.name+" "+call.Statement.Op)
	return next(ctx, call)
}

func TestMiddlewareOrder(t *testing.T) {
	db, mock := newMockDB(t, nil)
	m := newAccounts(t, db)

	var trace []string
	require.NoError(t, db.Use(&recorder{"outer", &trace}, &recorder{"inner", &trace}))

	mock.ExpectExec("DELETE FROM `account` WHERE `id` = ?").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := m.DeleteByPrimaryKey(context.Background(), 1)
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.Equal(t, []string{"outer DeleteByID", "inner DeleteByID", "stop inner", "stop outer"}, trace)
}
