package query

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/selector"
)

type user struct {
	ID    int64  `jdao:"pk auto"`
	Name  string `jdao:"column:user_name"`
	Email string
	Age   int
	Nick  sql.NullString
}

func (u *user) GetName() string { return u.Name }

type keyless struct {
	Code string
	Note string
}

func table(t *testing.T, v any) *model.Table {
	t.Helper()
	m, err := model.NewRegistry(nil).TableOf(v)
	require.NoError(t, err)
	return m
}

func TestFormatValue(t *testing.T) {
	n := 7
	var nilPtr *int
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{nilPtr, "NULL"},
		{&n, "7"},
		{42, "42"},
		{int8(-3), "-3"},
		{uint64(9), "9"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{true, "true"},
		{"Ann", "'Ann'"},
		{"O'Brien", "'O'Brien'"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "'2024-01-02 03:04:05'"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatValue(c.in))
	}
}

func TestWrapper(t *testing.T) {
	w := NewWrapper[user](nil).
		Eq(selector.Get((*user).GetName), "Ann").
		Gt(selector.Ptr(func(u *user) *int { return &u.Age }), 18).
		Lt(selector.Field[user]("Age"), 65).
		Ne(selector.Field[user]("Email"), nil).
		Like(selector.Field[user]("Email"), "example").
		Between(selector.Field[user]("ID"), 1, 10).
		In(selector.Field[user]("ID"), 1, 2, 3).
		OrderByDesc(selector.Field[user]("ID")).
		OrderByAsc(selector.Field[user]("Name"))

	require.NoError(t, w.Err())
	assert.Equal(t, "`user_name` = 'Ann' AND `age` > 18 AND `age` < 65 AND `email` <> NULL AND "+
		"`email` LIKE '%example%' AND `id` BETWEEN 1 AND 10 AND `id` IN (1, 2, 3)", w.WhereSQL())
	assert.Equal(t, "`id` DESC, `user_name` ASC", w.OrderBySQL())
}

func TestWrapperEmpty(t *testing.T) {
	w := NewWrapper[user](nil)
	assert.Equal(t, "", w.WhereSQL())
	assert.Equal(t, "", w.OrderBySQL())

	w.In(selector.Field[user]("ID"))
	assert.Equal(t, "1 = 0", w.WhereSQL())
}

func TestWrapperKeepsFirstError(t *testing.T) {
	w := NewWrapper[user](nil).
		Eq(selector.Get(func(u *user) string { return u.Name }), "x").
		Eq(selector.Field[user]("Age"), 1)

	assert.True(t, errors.Is(w.Err(), selector.ErrUnresolvable))
	assert.Equal(t, "`age` = 1", w.WhereSQL())

	_, err := Build(OpSelectWrapper, Input{Wrapper: w}, table(t, user{}))
	assert.ErrorIs(t, err, selector.ErrUnresolvable)
}

func TestWrapperUnknownPropertyIsQuoted(t *testing.T) {
	w := NewWrapper[user](nil).Eq(selector.Field[user]("CreatedAt"), 1)
	assert.Equal(t, "`created_at` = 1", w.WhereSQL())
}

func TestProviderFor(t *testing.T) {
	for op := OpInsert; op < opCount; op++ {
		p, err := ProviderFor(op)
		require.NoError(t, err, op.String())
		assert.NotNil(t, p)
	}
	_, err := ProviderFor(opCount)
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.Equal(t, "Unknown", Op(-1).String())
}

func TestInsert(t *testing.T) {
	out, err := Build(OpInsert, Input{Entity: &user{Name: "Ann"}}, table(t, user{}))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `user` (`user_name`, `email`, `age`, `nick`) "+
		"VALUES (#{Name}, #{Email}, #{Age}, #{Nick})", out.SQL)
	assert.IsType(t, user{}, out.Param)

	_, err = Build(OpInsert, Input{}, table(t, user{}))
	assert.ErrorIs(t, err, model.ErrNilEntity)

	_, err = Build(OpInsert, Input{Entity: &keyless{}}, table(t, user{}))
	assert.ErrorIs(t, err, ErrEntityMismatch)
}

func TestUpdate(t *testing.T) {
	tbl := table(t, user{})

	out, err := Build(OpUpdate, Input{Entity: &user{ID: 1, Name: "Ann"}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `user` SET `user_name` = #{Name}, `email` = #{Email}, `age` = #{Age}, "+
		"`nick` = #{Nick} WHERE `id` = #{ID}", out.SQL)

	out, err = Build(OpUpdateSelective, Input{Entity: &user{ID: 1, Name: "Ann"}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `user` SET `user_name` = #{Name} WHERE `id` = #{ID}", out.SQL)
	assert.Contains(t, out.SQL, "`user_name` = #{Name}")
	assert.NotContains(t, out.SQL, "email")
	assert.NotContains(t, out.SQL, "SET `id`")

	_, err = Build(OpUpdateSelective, Input{Entity: &user{ID: 1}}, tbl)
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = Build(OpUpdate, Input{Entity: &keyless{Code: "a"}}, table(t, keyless{}))
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestDelete(t *testing.T) {
	tbl := table(t, user{})

	out, err := Build(OpDelete, Input{Entity: &user{Email: "a@b.c", Age: 3}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `user` WHERE `email` = #{Email} AND `age` = #{Age}", out.SQL)

	_, err = Build(OpDelete, Input{Entity: &user{}}, tbl)
	assert.ErrorIs(t, err, ErrEmptyCriteria)
	_, err = Build(OpDelete, Input{}, tbl)
	assert.ErrorIs(t, err, ErrEmptyCriteria)

	out, err = Build(OpDeleteByID, Input{ID: 9}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `user` WHERE `id` = #{id}", out.SQL)
	assert.Equal(t, Params{"id": 9}, out.Param)
}

func TestSelect(t *testing.T) {
	tbl := table(t, user{})
	list := "`id` AS `ID`, `user_name` AS `Name`, `email` AS `Email`, `age` AS `Age`, `nick` AS `Nick`"

	out, err := Build(OpSelectByID, Input{ID: 1}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+list+" FROM `user` WHERE `id` = #{id}", out.SQL)

	out, err = Build(OpSelect, Input{Entity: &user{Name: "Ann", Nick: sql.NullString{String: "a", Valid: true}}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+list+" FROM `user` WHERE `user_name` = #{Name} AND `nick` = #{Nick}", out.SQL)

	out, err = Build(OpSelect, Input{Entity: &user{}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+list+" FROM `user`", out.SQL)
	assert.Equal(t, Params{}, out.Param)

	out, err = Build(OpSelectAll, Input{}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+list+" FROM `user` ORDER BY `id` DESC", out.SQL)

	out, err = Build(OpSelectAll, Input{OrderBy: "`age` ASC"}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+list+" FROM `user` ORDER BY `age` ASC", out.SQL)

	out, err = Build(OpCount, Input{Entity: &user{Age: 30}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM `user` WHERE `age` = #{Age}", out.SQL)
}

func TestSelectIn(t *testing.T) {
	tbl := table(t, user{})

	out, err := Build(OpSelectIn, Input{Column: "id", IDs: []any{1, 2}}, tbl)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "WHERE `id` IN (#{ids.0}, #{ids.1})")
	assert.Equal(t, Params{"ids.0": 1, "ids.1": 2}, out.Param)

	out, err = Build(OpSelectIn, Input{Column: "user_name"}, tbl)
	require.NoError(t, err)
	assert.True(t, len(out.SQL) > 0)
	assert.Contains(t, out.SQL, "WHERE 1=1")

	_, err = Build(OpSelectIn, Input{Column: "nope", IDs: []any{1}}, tbl)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSelectCustom(t *testing.T) {
	tbl := table(t, user{})
	out, err := Build(OpSelectCustom, Input{
		Custom: func(f *Fragments) *Fragments {
			f.Select = "`age`, COUNT(*)"
			f.GroupBy = "`age`"
			f.Tail = "LIMIT 10"
			return f.And("`age` > " + Bind("min"))
		},
		Params: Params{"min": 18},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `age`, COUNT(*) FROM `user` WHERE `age` > #{min} GROUP BY `age` LIMIT 10", out.SQL)
	assert.Equal(t, Params{"min": 18}, out.Param)
}

func TestSelectWrapper(t *testing.T) {
	tbl := table(t, user{})

	out, err := Build(OpSelectWrapper, Input{Wrapper: NewWrapper[user](nil)}, tbl)
	require.NoError(t, err)
	assert.NotContains(t, out.SQL, "WHERE")
	assert.NotContains(t, out.SQL, "ORDER BY")

	w := NewWrapper[user](nil).Eq(selector.Field[user]("Age"), 3).OrderByAsc(selector.Field[user]("ID"))
	out, err = Build(OpSelectWrapper, Input{Wrapper: w}, tbl)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "FROM `user` WHERE `age` = 3 ORDER BY `id` ASC")
}

func TestSelectCustomBindsCriteria(t *testing.T) {
	tbl := table(t, user{})
	out, err := Build(OpSelectCustom, Input{
		Entity: &user{Age: 40},
		Custom: func(f *Fragments) *Fragments {
			return f.And("`age` >= " + Bind("Age")).Order("`id`")
		},
	}, tbl)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "WHERE `age` >= #{Age} ORDER BY `id`")
	assert.Equal(t, user{Age: 40}, out.Param)
}

type audit struct {
	CreatedBy string
}

type document struct {
	*audit
	ID    int64 `jdao:"pk"`
	Title string
}

func TestNilEmbeddedPointerFails(t *testing.T) {
	tbl := table(t, document{})
	doc := &document{ID: 1, Title: "t"}

	for _, op := range []Op{OpInsert, OpUpdate, OpUpdateSelective, OpSelect, OpCount, OpDelete} {
		_, err := Build(op, Input{Entity: doc}, tbl)
		require.Error(t, err, op.String())
		assert.Contains(t, err.Error(), "CreatedBy", op.String())
	}

	out, err := Build(OpUpdate, Input{Entity: &document{audit: &audit{}, ID: 1, Title: "t"}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `document` SET `created_by` = #{CreatedBy}, `title` = #{Title} WHERE `id` = #{ID}", out.SQL)
}

type titled struct {
	Name string
}

type shadowing struct {
	titled
	ID   int64
	Name string `jdao:"column:display_name"`
}

func TestShallowFieldWins(t *testing.T) {
	tbl := table(t, shadowing{})
	require.Len(t, tbl.Fields, 2)
	f, ok := tbl.FieldByName("Name")
	require.True(t, ok)
	assert.Equal(t, "display_name", f.Column)
	assert.Equal(t, []int{2}, f.Index)

	out, err := Build(OpSelect, Input{Entity: &shadowing{titled: titled{Name: "base"}, ID: 1}}, tbl)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "WHERE `id` = #{ID}")
	assert.NotContains(t, out.SQL, "#{Name}")
}

func TestLikeFormatsValue(t *testing.T) {
	w := NewWrapper[user](nil).
		Like(selector.Field[user]("Email"), nil).
		Like(selector.Field[user]("Age"), 4).
		Like(selector.Field[user]("Name"), "an")
	assert.Equal(t, "`email` LIKE NULL AND `age` LIKE '%4%' AND `user_name` LIKE '%an%'", w.WhereSQL())
}
