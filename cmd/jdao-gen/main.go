// Command jdao-gen reads a live database schema and writes one entity file per
// table: a struct with jdao tags, its TableName method and a Cols variable of
// compile-time column selectors for the fluent builder.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/shrek82/jdao/logger"
)

type options struct {
	driver    string
	dsn       string
	tables    string
	pkg       string
	outDir    string
	overwrite bool
	timeout   time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.driver, "driver", "sqlite3", "database driver (sqlite3, mysql, postgres, pgx, sqlserver)")
	flag.StringVar(&opts.dsn, "dsn", "", "data source name")
	flag.StringVar(&opts.tables, "table", "", "comma separated tables to generate, all tables when empty")
	flag.StringVar(&opts.pkg, "pkg", "models", "package name of the generated code")
	flag.StringVar(&opts.outDir, "out", "./models", "output directory")
	flag.BoolVar(&opts.overwrite, "overwrite", false, "overwrite existing files")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "schema read timeout")
	flag.Parse()

	if opts.dsn == "" {
		fmt.Fprintln(os.Stderr, "usage: jdao-gen -dsn <dsn> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := logger.NewStdLogger()
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	db, err := sql.Open(opts.driver, opts.dsn)
	if err != nil {
		log.Error("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(ctx, db, opts, log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

// run generates every requested table. A failing table is logged and the rest
// still get generated; the joined error is returned at the end.
func run(ctx context.Context, db *sql.DB, opts options, log logger.Logger) error {
	var tables []string
	if opts.tables != "" {
		for _, t := range strings.Split(opts.tables, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	} else {
		var err error
		tables, err = fetchTables(ctx, db, opts.driver)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var errs []error
	for _, table := range tables {
		if err := generate(ctx, db, opts, table, log); err != nil {
			log.WithFields(map[string]any{"table": table}).Error("generate failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func generate(ctx context.Context, db *sql.DB, opts options, table string, log logger.Logger) error {
	fileName := filepath.Join(opts.outDir, strings.ToLower(table)+".go")
	if _, err := os.Stat(fileName); err == nil && !opts.overwrite {
		log.Warn("%s exists, skipped (use -overwrite)", fileName)
		return nil
	}

	cols, err := fetchColumns(ctx, db, opts.driver, table)
	if err != nil {
		return err
	}
	src, err := render(newEntity(opts.pkg, table, cols))
	if err != nil {
		return err
	}
	if err := os.WriteFile(fileName, src, 0o644); err != nil {
		return err
	}
	log.Info("generated %s -> %s", table, fileName)
	return nil
}
