package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shrek82/jdao/dialect"
	"github.com/shrek82/jdao/logger"
	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/pool"
	"github.com/shrek82/jdao/stmt"
)

// Options defines the configuration for the DB connection pool and logging.
type Options struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	// SlowThreshold and SlowLogPath configure the slow statement log installed by jdao.OpenConfig.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	SlowLogPath   string        `yaml:"slow_log_path"`

	Logger logger.Logger   `yaml:"-"` // overrides LogLevel and LogFormat
	Tables *model.Registry `yaml:"-"` // entity metadata registry, one per DB by default
}

// DB is the main entry point. It owns the connection pool, the dialect, the
// entity metadata registry and the compiled statement registry.
type DB struct {
	pool    pool.Pool
	dialect dialect.Dialect
	logger  logger.Logger
	tables  *model.Registry
	stmts   *stmt.Registry

	mu          sync.RWMutex
	middlewares []Middleware

	batchOpens atomic.Int64
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	if _, ok := dialect.Get(driver); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, driver)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(sqlDB, driver, opts)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.pool.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// OpenDB wraps an existing connection pool. dialectName selects quoting and
// placeholder style. The pool is not pinged.
func OpenDB(sqlDB *sql.DB, dialectName string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(dialectName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialectName)
	}
	if opts == nil {
		opts = &Options{}
	}

	p := pool.NewStdPool(sqlDB)
	pool.Limits{
		MaxOpenConns:    opts.MaxOpenConns,
		MaxIdleConns:    opts.MaxIdleConns,
		ConnMaxLifetime: opts.ConnMaxLifetime,
	}.Apply(p)

	l := opts.Logger
	if l == nil {
		l = logger.NewStdLogger()
		l.SetLevel(logger.ParseLevel(opts.LogLevel))
		if opts.LogFormat != "" {
			l.SetFormat(logger.LogFormat(opts.LogFormat))
		}
	}
	tables := opts.Tables
	if tables == nil {
		tables = model.NewRegistry(d)
	}

	return &DB{
		pool:    p,
		dialect: d,
		logger:  l,
		tables:  tables,
		stmts:   stmt.NewRegistry(d.Placeholder),
	}, nil
}

// Close shuts the middlewares down and closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	mws := db.middlewares
	db.middlewares = nil
	db.mu.Unlock()

	for i := len(mws) - 1; i >= 0; i-- {
		if err := mws[i].Shutdown(); err != nil {
			db.logger.Warn("shutdown %s: %v", mws[i].Name(), err)
		}
	}
	return db.pool.Close()
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.logger = l
}

// Logger returns the DB's logger.
func (db *DB) Logger() logger.Logger {
	return db.logger
}

// Dialect returns the dialect statements are compiled for.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

// Tables returns the entity metadata registry.
func (db *DB) Tables() *model.Registry {
	return db.tables
}

// Statements returns the compiled statement registry.
func (db *DB) Statements() *stmt.Registry {
	return db.stmts
}

// BatchOpens reports how many batched sessions were opened.
func (db *DB) BatchOpens() int64 {
	return db.batchOpens.Load()
}

// Use initializes and installs middlewares. The first one installed runs outermost.
func (db *DB) Use(mws ...Middleware) error {
	for _, mw := range mws {
		if err := mw.Init(db); err != nil {
			return fmt.Errorf("init %s: %w", mw.Name(), err)
		}
		db.mu.Lock()
		db.middlewares = append(db.middlewares, mw)
		db.mu.Unlock()
	}
	return nil
}

func (db *DB) middlewareChain() []Middleware {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.middlewares
}

// Session returns the ambient session running each statement on the pool.
func (db *DB) Session() Session {
	return newSession(db, db.pool)
}

// Transaction runs fn in a transaction, committing when it returns nil and
// rolling back on error or panic. Calls on the session carry a session id, so
// result caches leave them alone.
func (db *DB) Transaction(ctx context.Context, fn func(s Session) error) (err error) {
	start := time.Now()
	tx, err := db.pool.BeginTx(ctx, nil)
	db.logger.SQL("BEGIN", time.Since(start))
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			start := time.Now()
			_ = tx.Rollback()
			db.logger.SQL("ROLLBACK", time.Since(start))
			panic(p)
		} else if err != nil {
			start := time.Now()
			_ = tx.Rollback()
			db.logger.SQL("ROLLBACK", time.Since(start))
		} else {
			start := time.Now()
			err = tx.Commit()
			db.logger.SQL("COMMIT", time.Since(start))
		}
	}()

	s := newSession(db, tx)
	s.id = uuid.NewString()
	return fn(s)
}

// Exec executes a raw SQL statement without returning any rows.
func (db *DB) Exec(ctx context.Context, sqlStr string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.pool.ExecContext(ctx, sqlStr, args...)
	db.logger.SQL(sqlStr, time.Since(start), args...)
	return res, translate(err)
}

func (db *DB) logCall(call *Call, d time.Duration) {
	l := db.logger
	if len(call.Fields) > 0 || call.SessionID != "" {
		fields := make(map[string]any, len(call.Fields)+1)
		for k, v := range call.Fields {
			fields[k] = v
		}
		if call.SessionID != "" {
			fields["session"] = call.SessionID
		}
		l = l.WithFields(fields)
	}
	l.SQL(call.Statement.SQL, d, call.Args...)
}
