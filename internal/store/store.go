// Package store is the persistence capability the device model is built on:
// one EntityStore per row type, addressed only by explicit filters and keys.
package store

import "context"

// Entity is a row type that knows the columns identifying it for Upsert.
type Entity interface {
	NaturalKey() map[string]any
}

// Retainer is implemented by entities with columns that Upsert must leave
// as they are on an existing row.
type Retainer interface {
	RetainedOnUpsert() []string
}

// Where is a conjunction of column equalities. A nil value matches NULL and
// NotNull matches any non-NULL value.
type Where map[string]any

type notNull struct{}

// NotNull is the Where value for "column IS NOT NULL".
var NotNull = notNull{}

// Include names a relation of the queried row. A non-empty Where (or a filtered
// child) restricts the parent rows to those whose related row matches; the
// relation is loaded onto the result either way.
type Include struct {
	Relation string
	Where    Where
	Include  []Include
}

func (i Include) filtered() bool {
	if len(i.Where) > 0 {
		return true
	}
	for _, c := range i.Include {
		if c.filtered() {
			return true
		}
	}
	return false
}

type Query struct {
	Where   Where
	Include []Include
}

// EntityStore is CRUD over one row type.
type EntityStore[T Entity] interface {
	Create(ctx context.Context, candidate T) (T, error)
	ReadAllByQuery(ctx context.Context, q Query) ([]T, error)
	// ReadOrCreateByQuery returns the first row matching q, or creates
	// candidate when there is none. The bool reports creation.
	ReadOrCreateByQuery(ctx context.Context, q Query, candidate T) (T, bool, error)
	// Upsert overwrites every column of the row sharing candidate's natural
	// key, or creates it. The bool reports creation.
	Upsert(ctx context.Context, candidate T) (T, bool, error)
	UpdateByKey(ctx context.Context, patch map[string]any, key any) (T, error)
	DeleteAllByQuery(ctx context.Context, q Query) ([]T, error)
	ExistByQuery(ctx context.Context, q Query) (int64, error)
}
