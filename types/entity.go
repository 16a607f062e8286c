package types

import "time"

// Entity carries the creation timestamp of an append-only object. Records
// and issuances are never updated once written, so there is no UpdatedAt.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
}

// NewEntity stamps an Entity with t, truncated to the second and in UTC so
// that every backend round-trips it exactly.
func NewEntity(t time.Time) Entity {
	return Entity{CreatedAt: t.UTC().Truncate(time.Second)}
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
