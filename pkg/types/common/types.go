// Package common defines the primitive identifier and shared value types used
// across all Scenedex layers.
package common

import (
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id == "" }

// String returns the string form of the ID.
func (id ID) String() string { return string(id) }

// UserID is a string alias for a user identifier.
type UserID string

// ProjectID is a string alias for a production/project identifier.
type ProjectID string

// BaseEntity carries audit metadata for persisted records.
type BaseEntity struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pagination defines parameters for paginated list requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Normalize clamps pagination parameters to sane values.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

// Offset returns the SQL OFFSET corresponding to the pagination state.
func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = 20
	}
	return (page - 1) * size
}
