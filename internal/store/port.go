package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an update or delete targets a missing row
var ErrNotFound = errors.New("record not found")

// Entity is a persistable record keyed by an opaque id
type Entity interface {
	TableName() string
	GetID() string
}

// Port is the durable store consumed by the engines.
// Update writes only the named fields of the entity.
type Port interface {
	Insert(ctx context.Context, e Entity) error
	Update(ctx context.Context, e Entity, fields ...string) error
	Delete(ctx context.Context, e Entity) error
	GetAll(ctx context.Context, dest any) error
	RunAtomic(ctx context.Context, work func(tx Port) error) error
}
