package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every persisted domain object
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity carries the identity and timestamps shared by all entities.
// IDs are generated locally so entities exist before their first save.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a base entity with a fresh ID and both timestamps set
// to the same instant
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID { return e.ID }

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time { return e.CreatedAt }

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time { return e.UpdatedAt }
