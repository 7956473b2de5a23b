package query

// Op enumerates the SQL shapes the providers can generate.
type Op int

const (
	OpInsert Op = iota
	OpBatchInsert
	OpUpdate
	OpUpdateSelective
	OpDelete
	OpDeleteByID
	OpSelectByID
	OpSelectAll
	OpSelect
	OpSelectIn
	OpSelectCustom
	OpSelectWrapper
	OpCount
	opCount
)

var opNames = [...]string{
	OpInsert:          "Insert",
	OpBatchInsert:     "BatchInsert",
	OpUpdate:          "Update",
	OpUpdateSelective: "UpdateSelective",
	OpDelete:          "Delete",
	OpDeleteByID:      "DeleteByID",
	OpSelectByID:      "SelectByID",
	OpSelectAll:       "SelectAll",
	OpSelect:          "Select",
	OpSelectIn:        "SelectIn",
	OpSelectCustom:    "SelectCustom",
	OpSelectWrapper:   "SelectWrapper",
	OpCount:           "Count",
}

func (o Op) String() string {
	if o < 0 || o >= opCount {
		return "Unknown"
	}
	return opNames[o]
}

// Kind tells the session how a statement is executed.
type Kind int

const (
	KindExec   Kind = iota // returns rows affected
	KindRows               // returns mapped entities
	KindScalar             // returns a single value
)

// Kind returns how statements of this op are executed.
func (o Op) Kind() Kind {
	switch o {
	case OpInsert, OpBatchInsert, OpUpdate, OpUpdateSelective, OpDelete, OpDeleteByID:
		return KindExec
	case OpCount:
		return KindScalar
	}
	return KindRows
}
