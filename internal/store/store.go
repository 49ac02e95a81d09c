// Package store persists tracked entities.
//
// Two implementations satisfy Store with identical observable behavior:
// Gorm (PostgreSQL or SQLite) for production and Memory for tests and
// local tooling. Both resolve column names through gorm's schema parser,
// so filters and counters use the same names against either backend.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm/schema"

	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

// Entity constrains the pointer type of a stored struct
type Entity[T any] interface {
	*T
	domain.Record
}

// Filter narrows a listing. Where holds column equality conditions.
// Results are ordered by creation time, oldest first unless Desc is set.
type Filter struct {
	Where  map[string]any
	Desc   bool
	Offset int
	Limit  int
}

// Eq returns a filter with a single equality condition
func Eq(column string, value any) Filter {
	return Filter{Where: map[string]any{column: value}}
}

// Store is the Entity Store contract for one entity kind
type Store[T any] interface {
	// Create assigns the id, timestamps and version 1. A unique column
	// collision fails with Conflict.
	Create(ctx context.Context, e *T) error
	Get(ctx context.Context, id uint) (*T, error)
	// Save writes every non-counter field if the stored version still
	// equals e's version, then bumps the version. A stale version fails
	// with Conflict and leaves the stored entity untouched.
	Save(ctx context.Context, e *T) error
	// Update reads, applies fn and saves in one attempt
	Update(ctx context.Context, id uint, fn func(*T) error) (*T, error)
	List(ctx context.Context, f Filter) ([]*T, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// CountBy groups matching entities by a column value
	CountBy(ctx context.Context, column string, f Filter) (map[string]int64, error)
	// Sum totals a numeric column over matching entities
	Sum(ctx context.Context, column string, f Filter) (int64, error)
	// Increment atomically adds delta to a counter column without
	// touching the version or the modification timestamp
	Increment(ctx context.Context, id uint, column string, delta int64) error
	// Delete is idempotent: deleting an absent id succeeds
	Delete(ctx context.Context, id uint) error
	DeleteWhere(ctx context.Context, where map[string]any) (int64, error)
}

// Option configures a store
type Option func(*options)

type options struct {
	timeout  time.Duration
	counters []string
	now      func() time.Time
}

// WithTimeout bounds every store operation
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCounters declares counter columns. Only counters may be incremented,
// and Save never overwrites them.
func WithCounters(columns ...string) Option {
	return func(o *options) { o.counters = append(o.counters, columns...) }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		timeout: 5 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) isCounter(column string) bool {
	for _, c := range o.counters {
		if c == column {
			return true
		}
	}
	return false
}

// entitySchema parses T the same way gorm does for migrations and queries
func entitySchema[T any]() (*schema.Schema, error) {
	s, err := schema.Parse(new(T), &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s, nil
}

// column resolves a column name and rejects anything the schema does not know
func column(s *schema.Schema, kind domain.Kind, name string) (*schema.Field, error) {
	f := s.LookUpField(name)
	if f == nil || f.DBName == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest,
			fmt.Sprintf("%s has no column %q", kind, name))
	}
	return f, nil
}

func kindOf[T any, P Entity[T]]() domain.Kind {
	var zero T
	return P(&zero).Kind()
}

func isDuplicateKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicated key")
}
