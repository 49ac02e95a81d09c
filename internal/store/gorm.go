package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

// Gorm is a Store backed by a gorm connection
type Gorm[T any, P Entity[T]] struct {
	db     *gorm.DB
	schema *schema.Schema
	kind   domain.Kind
	opts   options
}

// NewGorm creates a gorm-backed store for T
func NewGorm[T any, P Entity[T]](db *gorm.DB, opts ...Option) (*Gorm[T, P], error) {
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
	return &Gorm[T, P]{db: db, schema: s, kind: kindOf[T, P](), opts: o}, nil
}

func (g *Gorm[T, P]) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if g.opts.timeout <= 0 {
		return g.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.timeout)
	return g.db.WithContext(ctx), cancel
}

func (g *Gorm[T, P]) fail(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.Unavailable("entity store unavailable", err)
	}
	return apperrors.Wrap(apperrors.ErrCodeInternalError,
		fmt.Sprintf("%s %s", op, g.kind), err)
}

func (g *Gorm[T, P]) Create(ctx context.Context, e *T) error {
	db, cancel := g.session(ctx)
	defer cancel()

	meta := P(e).Meta()
	meta.ID = 0
	meta.Version = 1
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = g.opts.now()
	}
	meta.UpdatedAt = meta.CreatedAt

	if err := db.Create(e).Error; err != nil {
		meta.ID = 0
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKey(err) {
			return apperrors.Conflict(string(g.kind), nil,
				fmt.Sprintf("%s violates a unique constraint", g.kind))
		}
		return g.fail("create", err)
	}
	return nil
}

func (g *Gorm[T, P]) Get(ctx context.Context, id uint) (*T, error) {
	db, cancel := g.session(ctx)
	defer cancel()

	var e T
	if err := db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(string(g.kind), id)
		}
		return nil, g.fail("get", err)
	}
	return &e, nil
}

func (g *Gorm[T, P]) Save(ctx context.Context, e *T) error {
	db, cancel := g.session(ctx)
	defer cancel()

	meta := P(e).Meta()
	expected := meta.Version
	prevUpdated := meta.UpdatedAt
	meta.Version = expected + 1
	meta.UpdatedAt = g.opts.now()

	omit := append([]string{"id", "created_at"}, g.opts.counters...)
	res := db.Model(e).
		Where("version = ?", expected).
		Select("*").
		Omit(omit...).
		Updates(e)
	if res.Error != nil {
		meta.Version, meta.UpdatedAt = expected, prevUpdated
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isDuplicateKey(res.Error) {
			return apperrors.Conflict(string(g.kind), meta.ID,
				fmt.Sprintf("%s violates a unique constraint", g.kind))
		}
		return g.fail("save", res.Error)
	}
	if res.RowsAffected == 0 {
		meta.Version, meta.UpdatedAt = expected, prevUpdated
		var n int64
		if err := db.Model(new(T)).Where("id = ?", meta.ID).Count(&n).Error; err != nil {
			return g.fail("save", err)
		}
		if n == 0 {
			return apperrors.NotFound(string(g.kind), meta.ID)
		}
		return apperrors.Conflict(string(g.kind), meta.ID,
			fmt.Sprintf("%s %d was modified concurrently", g.kind, meta.ID))
	}
	return nil
}

func (g *Gorm[T, P]) Update(ctx context.Context, id uint, fn func(*T) error) (*T, error) {
	e, err := g.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := g.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (g *Gorm[T, P]) scope(db *gorm.DB, f Filter) (*gorm.DB, error) {
	q := db.Model(new(T))
	if len(f.Where) == 0 {
		return q, nil
	}
	where := make(map[string]any, len(f.Where))
	for name, v := range f.Where {
		field, err := column(g.schema, g.kind, name)
		if err != nil {
			return nil, err
		}
		where[field.DBName] = v
	}
	return q.Where(where), nil
}

func (g *Gorm[T, P]) List(ctx context.Context, f Filter) ([]*T, error) {
	db, cancel := g.session(ctx)
	defer cancel()

	q, err := g.scope(db, f)
	if err != nil {
		return nil, err
	}
	if f.Desc {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = q.Order("created_at").Order("id")
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []*T
	if err := q.Find(&rows).Error; err != nil {
		return nil, g.fail("list", err)
	}
	return rows, nil
}

func (g *Gorm[T, P]) Count(ctx context.Context, f Filter) (int64, error) {
	db, cancel := g.session(ctx)
	defer cancel()

	q, err := g.scope(db, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, g.fail("count", err)
	}
	return n, nil
}

func (g *Gorm[T, P]) CountBy(ctx context.Context, name string, f Filter) (map[string]int64, error) {
	field, err := column(g.schema, g.kind, name)
	if err != nil {
		return nil, err
	}
	db, cancel := g.session(ctx)
	defer cancel()

	q, err := g.scope(db, f)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Bucket string
		Total  int64
	}
	err = q.Select(fmt.Sprintf("%s AS bucket, COUNT(*) AS total", field.DBName)).
		Group(field.DBName).
		Scan(&rows).Error
	if err != nil {
		return nil, g.fail("count", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Bucket] = r.Total
	}
	return out, nil
}

func (g *Gorm[T, P]) Sum(ctx context.Context, name string, f Filter) (int64, error) {
	field, err := column(g.schema, g.kind, name)
	if err != nil {
		return 0, err
	}
	db, cancel := g.session(ctx)
	defer cancel()

	q, err := g.scope(db, f)
	if err != nil {
		return 0, err
	}
	var total int64
	err = q.Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", field.DBName)).Scan(&total).Error
	if err != nil {
		return 0, g.fail("sum", err)
	}
	return total, nil
}

func (g *Gorm[T, P]) Increment(ctx context.Context, id uint, name string, delta int64) error {
	field, err := column(g.schema, g.kind, name)
	if err != nil {
		return err
	}
	if !g.opts.isCounter(field.DBName) {
		return apperrors.New(apperrors.ErrCodeBadRequest,
			fmt.Sprintf("%s.%s is not a counter", g.kind, field.DBName))
	}
	db, cancel := g.session(ctx)
	defer cancel()

	res := db.Model(new(T)).
		Where("id = ?", id).
		UpdateColumn(field.DBName, gorm.Expr(field.DBName+" + ?", delta))
	if res.Error != nil {
		return g.fail("increment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(string(g.kind), id)
	}
	return nil
}

func (g *Gorm[T, P]) Delete(ctx context.Context, id uint) error {
	db, cancel := g.session(ctx)
	defer cancel()

	if err := db.Delete(new(T), id).Error; err != nil {
		return g.fail("delete", err)
	}
	return nil
}

func (g *Gorm[T, P]) DeleteWhere(ctx context.Context, where map[string]any) (int64, error) {
	if len(where) == 0 {
		return 0, apperrors.New(apperrors.ErrCodeBadRequest, "delete requires a condition")
	}
	db, cancel := g.session(ctx)
	defer cancel()

	q, err := g.scope(db, Filter{Where: where})
	if err != nil {
		return 0, err
	}
	res := q.Delete(new(T))
	if res.Error != nil {
		return 0, g.fail("delete", res.Error)
	}
	return res.RowsAffected, nil
}
