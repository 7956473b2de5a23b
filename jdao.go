// Package jdao is a generic data-access layer: entity metadata by reflection,
// generated CRUD statements compiled once and cached, and a type-safe
// predicate builder driven by column selectors.
//
//	db, err := jdao.OpenConfig("jdao.yaml")
//	users, err := jdao.NewMapper[User](db)
//	list, err := users.SelectByWrapper(ctx,
//		users.Wrapper().Eq(selector.Field[User]("Status"), 1).OrderByDesc(selector.Field[User]("ID")))
package jdao

import (
	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/middleware"
	"github.com/shrek82/jdao/model"
	"github.com/shrek82/jdao/query"
)

// Re-export core types and functions
type (
	DB           = core.DB
	Options      = core.Options
	Config       = core.Config
	Session      = core.Session
	BatchSession = core.BatchSession
	Middleware   = core.Middleware
	Call         = core.Call
	Result       = core.Result
	Handler      = core.Handler
	Meta         = model.Meta
	Params       = query.Params
)

// Repository is the per-entity set of data-access operations.
type Repository[T any] interface {
	core.Repository[T]
}

var (
	Open       = core.Open
	OpenDB     = core.OpenDB
	LoadConfig = core.LoadConfig
	WithCache  = core.WithCache
	IsNotFound = core.IsNotFound
)

// Errors
var (
	ErrRecordNotFound = core.ErrRecordNotFound
	ErrNotSingular    = core.ErrNotSingular
	ErrDuplicateKey   = core.ErrDuplicateKey
	ErrInvalidEntity  = core.ErrInvalidEntity
	ErrNilEntity      = core.ErrNilEntity
	ErrEmptyCriteria  = core.ErrEmptyCriteria
	ErrEmptyUpdate    = core.ErrEmptyUpdate
	ErrNoPrimaryKey   = core.ErrNoPrimaryKey
	ErrUnknownColumn  = core.ErrUnknownColumn
	ErrUnresolvable   = core.ErrUnresolvable
	ErrBadBinding     = core.ErrBadBinding
)

// NewMapper returns the repository of entity type T bound to db.
func NewMapper[T any](db *DB) (*core.Mapper[T], error) {
	return core.NewMapper[T](db)
}

// NewWrapper returns an empty predicate builder for T quoted like db.
func NewWrapper[T any](db *DB) *query.Wrapper[T] {
	return query.NewWrapper[T](db.Tables())
}

// OpenConfig opens the database a YAML config file describes. A positive
// slow_threshold installs the slow statement log.
func OpenConfig(path string) (*DB, error) {
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	db, err := cfg.Open()
	if err != nil {
		return nil, err
	}
	if cfg.SlowThreshold > 0 {
		if err := db.Use(middleware.NewSlowLog(cfg.SlowThreshold, cfg.SlowLogPath)); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
