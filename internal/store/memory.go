package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"gorm.io/gorm/schema"

	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

// Memory is an in-process Store. Entities are deep-copied on the way in and
// out, so callers never share state with the stored rows.
type Memory[T any, P Entity[T]] struct {
	mu     sync.RWMutex
	rows   map[uint]*T
	nextID uint
	schema *schema.Schema
	kind   domain.Kind
	opts   options
}

// NewMemory creates an empty in-memory store for T
func NewMemory[T any, P Entity[T]](opts ...Option) (*Memory[T, P], error) {
	s, err := entitySchema[T]()
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	for _, c := range o.counters {
		if _, err := column(s, kindOf[T, P](), c); err != nil {
			return nil, err
		}
	}
	return &Memory[T, P]{
		rows:   make(map[uint]*T),
		schema: s,
		kind:   kindOf[T, P](),
		opts:   o,
	}, nil
}

func clone[T any](e *T) *T {
	raw, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("store: clone %T: %v", e, err))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("store: clone %T: %v", e, err))
	}
	return &out
}

// valueOf reads a column value and flattens it for comparison
func (m *Memory[T, P]) valueOf(ctx context.Context, f *schema.Field, e *T) string {
	v, zero := f.ValueOf(ctx, reflect.ValueOf(e).Elem())
	if zero && v == nil {
		return ""
	}
	return flatten(v)
}

func flatten(v any) string {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}

func (m *Memory[T, P]) matches(ctx context.Context, e *T, where map[string]any) (bool, error) {
	for name, want := range where {
		f, err := column(m.schema, m.kind, name)
		if err != nil {
			return false, err
		}
		if m.valueOf(ctx, f, e) != flatten(want) {
			return false, nil
		}
	}
	return true, nil
}

func (m *Memory[T, P]) uniqueClash(ctx context.Context, e *T) bool {
	id := P(e).Meta().ID
	for _, f := range m.schema.Fields {
		if !f.Unique || f.PrimaryKey {
			continue
		}
		want := m.valueOf(ctx, f, e)
		for otherID, row := range m.rows {
			if otherID != id && m.valueOf(ctx, f, row) == want {
				return true
			}
		}
	}
	return false
}

func (m *Memory[T, P]) Create(ctx context.Context, e *T) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := P(e).Meta()
	meta.ID = 0
	if m.uniqueClash(ctx, e) {
		return apperrors.Conflict(string(m.kind), nil,
			fmt.Sprintf("%s violates a unique constraint", m.kind))
	}
	m.nextID++
	meta.ID = m.nextID
	meta.Version = 1
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = m.opts.now()
	}
	meta.UpdatedAt = meta.CreatedAt
	m.rows[meta.ID] = clone(e)
	return nil
}

func (m *Memory[T, P]) Get(ctx context.Context, id uint) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFound(string(m.kind), id)
	}
	return clone(row), nil
}

func (m *Memory[T, P]) Save(ctx context.Context, e *T) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := P(e).Meta()
	current, ok := m.rows[meta.ID]
	if !ok {
		return apperrors.NotFound(string(m.kind), meta.ID)
	}
	stored := P(current).Meta()
	if stored.Version != meta.Version {
		return apperrors.Conflict(string(m.kind), meta.ID,
			fmt.Sprintf("%s %d was modified concurrently", m.kind, meta.ID))
	}
	if m.uniqueClash(ctx, e) {
		return apperrors.Conflict(string(m.kind), meta.ID,
			fmt.Sprintf("%s violates a unique constraint", m.kind))
	}

	next := clone(e)
	nextMeta := P(next).Meta()
	nextMeta.CreatedAt = stored.CreatedAt
	nextMeta.Version = stored.Version + 1
	nextMeta.UpdatedAt = m.opts.now()
	rv := reflect.ValueOf(next).Elem()
	for _, c := range m.opts.counters {
		f := m.schema.LookUpField(c)
		v, _ := f.ValueOf(ctx, reflect.ValueOf(current).Elem())
		if err := f.Set(ctx, rv, v); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternalError, "save "+string(m.kind), err)
		}
	}
	m.rows[meta.ID] = next

	// reflect the stored state back to the caller
	*e = *clone(next)
	return nil
}

func (m *Memory[T, P]) Update(ctx context.Context, id uint, fn func(*T) error) (*T, error) {
	e, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := m.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *Memory[T, P]) filter(ctx context.Context, f Filter) ([]*T, error) {
	var out []*T
	for _, row := range m.rows {
		ok, err := m.matches(ctx, row, f.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := P(out[i]).Meta(), P(out[j]).Meta()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if f.Desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if f.Desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *Memory[T, P]) List(ctx context.Context, f Filter) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.filter(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[f.Offset:]
		}
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		out = append(out, clone(row))
	}
	return out, nil
}

func (m *Memory[T, P]) Count(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.filter(ctx, f)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (m *Memory[T, P]) CountBy(ctx context.Context, name string, f Filter) (map[string]int64, error) {
	field, err := column(m.schema, m.kind, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.filter(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for _, row := range rows {
		out[m.valueOf(ctx, field, row)]++
	}
	return out, nil
}

func (m *Memory[T, P]) Sum(ctx context.Context, name string, f Filter) (int64, error) {
	field, err := column(m.schema, m.kind, name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.filter(ctx, f)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, row := range rows {
		v, _ := field.ValueOf(ctx, reflect.ValueOf(row).Elem())
		rv := reflect.Indirect(reflect.ValueOf(v))
		switch {
		case rv.CanInt():
			total += rv.Int()
		case rv.CanUint():
			total += int64(rv.Uint())
		default:
			return 0, apperrors.New(apperrors.ErrCodeBadRequest,
				fmt.Sprintf("%s.%s is not numeric", m.kind, field.DBName))
		}
	}
	return total, nil
}

func (m *Memory[T, P]) Increment(ctx context.Context, id uint, name string, delta int64) error {
	field, err := column(m.schema, m.kind, name)
	if err != nil {
		return err
	}
	if !m.opts.isCounter(field.DBName) {
		return apperrors.New(apperrors.ErrCodeBadRequest,
			fmt.Sprintf("%s.%s is not a counter", m.kind, field.DBName))
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return apperrors.NotFound(string(m.kind), id)
	}
	rv := reflect.ValueOf(row).Elem()
	v, _ := field.ValueOf(ctx, rv)
	current := reflect.Indirect(reflect.ValueOf(v))
	if !current.CanInt() {
		return apperrors.New(apperrors.ErrCodeBadRequest,
			fmt.Sprintf("%s.%s is not numeric", m.kind, field.DBName))
	}
	return field.Set(ctx, rv, current.Int()+delta)
}

func (m *Memory[T, P]) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, id)
	return nil
}

func (m *Memory[T, P]) DeleteWhere(ctx context.Context, where map[string]any) (int64, error) {
	if len(where) == 0 {
		return 0, apperrors.New(apperrors.ErrCodeBadRequest, "delete requires a condition")
	}
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Unavailable("entity store unavailable", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, row := range m.rows {
		ok, err := m.matches(ctx, row, where)
		if err != nil {
			return 0, err
		}
		if ok {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}
