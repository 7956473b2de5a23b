package core

// Lifecycle hooks an entity may implement on its pointer receiver.
type (
	BeforeInserter interface{ BeforeInsert() error }
	BeforeUpdater  interface{ BeforeUpdate() error }
	AfterFinder    interface{ AfterFind() error }
)

func beforeInsert[T any](entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	if h, ok := any(entity).(BeforeInserter); ok {
		return h.BeforeInsert()
	}
	return nil
}

func beforeUpdate[T any](entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	if h, ok := any(entity).(BeforeUpdater); ok {
		return h.BeforeUpdate()
	}
	return nil
}

func afterFind[T any](items []*T) error {
	for _, item := range items {
		if h, ok := any(item).(AfterFinder); ok {
			if err := h.AfterFind(); err != nil {
				return err
			}
		}
	}
	return nil
}
