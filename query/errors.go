package query

import "errors"

var (
	// ErrEmptyCriteria is returned when a delete has no non-null criteria field.
	ErrEmptyCriteria = errors.New("criteria has no non-null field")
	// ErrEmptyUpdate is returned when a selective update has nothing to set.
	ErrEmptyUpdate = errors.New("update has no non-null field to set")
	// ErrNoPrimaryKey is returned when an update needs a key field the entity does not have.
	ErrNoPrimaryKey = errors.New("entity has no primary key field")
	// ErrUnknownColumn is returned when a column name matches no mapped field.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnknownOp is returned for an op outside the provider table.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrEntityMismatch is returned when a criteria value is not of the table's entity type.
	ErrEntityMismatch = errors.New("criteria type does not match table")
)

// ErrNoColumns is returned when an insert has no column to write.
var ErrNoColumns = errors.New("entity has no insertable column")
