package jdao_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jdao"
	"github.com/shrek82/jdao/selector"
)

type note struct {
	ID    int64 `jdao:"pk auto"`
	Title string
	Stars int
}

func TestOpenConfig(t *testing.T) {
	dir := t.TempDir()
	slowPath := filepath.Join(dir, "slow.log")
	cfgPath := filepath.Join(dir, "jdao.yaml")
	cfg := "driver: sqlite3\n" +
		"dsn: \":memory:\"\n" +
		"max_open_conns: 1\n" +
		"log_level: silent\n" +
		"slow_threshold: 1ns\n" +
		"slow_log_path: " + slowPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	db, err := jdao.OpenConfig(cfgPath)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = db.Exec(ctx, "CREATE TABLE note (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, stars INTEGER)")
	require.NoError(t, err)

	notes, err := jdao.NewMapper[note](db)
	require.NoError(t, err)
	var repo jdao.Repository[note] = notes

	_, err = repo.Insert(ctx, &note{Title: "first", Stars: 3})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &note{Title: "second", Stars: 5})
	require.NoError(t, err)

	w := jdao.NewWrapper[note](db).Gt(selector.Field[note]("Stars"), 4)
	got, err := repo.SelectByWrapper(ctx, w)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Title)

	_, err = repo.SelectByPrimaryKey(ctx, 99)
	assert.True(t, jdao.IsNotFound(err))

	require.NoError(t, db.Close())
	logged, err := os.ReadFile(slowPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "[SLOW SQL]")
	assert.Contains(t, string(logged), "INSERT INTO")
}

func TestOpenConfigMissingFile(t *testing.T) {
	_, err := jdao.OpenConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
