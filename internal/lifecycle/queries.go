package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"visadesk/internal/domain"
	"visadesk/internal/store"
	apperrors "visadesk/pkg/errors"
)

// Page bounds a public listing
type Page struct {
	Offset int
	Limit  int
}

// Get returns any entity to an administrator. Inquiries are read through
// ViewInquiry so the first view marks them read.
func (e *Engine) Get(ctx context.Context, kind domain.Kind, id uint) (domain.Record, error) {
	if err := e.requireAdmin(ctx, "get"); err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindApplication:
		return get(ctx, e.stores.Applications, id)
	case domain.KindConsultation:
		return get(ctx, e.stores.Consultations, id)
	case domain.KindInquiry:
		return e.ViewInquiry(ctx, id)
	case domain.KindTestimonial:
		return get(ctx, e.stores.Testimonials, id)
	case domain.KindBlogPost:
		return get(ctx, e.stores.Posts, id)
	case domain.KindBlogComment:
		return get(ctx, e.stores.Comments, id)
	}
	return nil, unknownKind(kind, allKinds)
}

const allKinds = "application, consultation, inquiry, testimonial, blog_post, blog_comment"

func get[T any, P store.Entity[T]](ctx context.Context, s store.Store[T], id uint) (domain.Record, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return P(e), nil
}

// List returns entities of any kind to an administrator, newest first
// unless the filter says otherwise. The result is a typed slice.
func (e *Engine) List(ctx context.Context, kind domain.Kind, f store.Filter) (any, error) {
	switch kind {
	case domain.KindApplication:
		return e.ListApplications(ctx, f)
	case domain.KindConsultation:
		return e.ListConsultations(ctx, f)
	case domain.KindInquiry:
		return e.ListInquiries(ctx, f)
	case domain.KindTestimonial:
		return e.ListTestimonials(ctx, f)
	case domain.KindBlogPost:
		return e.ListPosts(ctx, f)
	case domain.KindBlogComment:
		return e.ListComments(ctx, f)
	}
	return nil, unknownKind(kind, allKinds)
}

func (e *Engine) ListApplications(ctx context.Context, f store.Filter) ([]*domain.Application, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Applications.List(ctx, f)
}

func (e *Engine) ListConsultations(ctx context.Context, f store.Filter) ([]*domain.Consultation, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Consultations.List(ctx, f)
}

func (e *Engine) ListInquiries(ctx context.Context, f store.Filter) ([]*domain.Inquiry, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Inquiries.List(ctx, f)
}

// ListTestimonials includes unapproved and rejected testimonials
func (e *Engine) ListTestimonials(ctx context.Context, f store.Filter) ([]*domain.Testimonial, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Testimonials.List(ctx, f)
}

// ListPosts includes drafts
func (e *Engine) ListPosts(ctx context.Context, f store.Filter) ([]*domain.BlogPost, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Posts.List(ctx, f)
}

func (e *Engine) ListComments(ctx context.Context, f store.Filter) ([]*domain.BlogComment, error) {
	if err := e.requireAdmin(ctx, "list"); err != nil {
		return nil, err
	}
	return e.stores.Comments.List(ctx, f)
}

// PublicTestimonials lists approved testimonials, newest first
func (e *Engine) PublicTestimonials(ctx context.Context, featuredOnly bool) ([]*domain.Testimonial, error) {
	f := store.Filter{Desc: true}
	if featuredOnly {
		f.Where = map[string]any{"is_featured": true}
	}
	return e.testimonials.Public(ctx, f)
}

// PublicPosts lists published posts, newest first, optionally in one category
func (e *Engine) PublicPosts(ctx context.Context, category domain.BlogCategory, page Page) ([]*domain.BlogPost, error) {
	where := map[string]any{"published": true}
	if category != "" {
		where["category"] = category
	}
	return e.stores.Posts.List(ctx, store.Filter{
		Where:  where,
		Desc:   true,
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// PublicComments lists approved comments on a published post in the
// order they were written
func (e *Engine) PublicComments(ctx context.Context, postID uint) ([]*domain.BlogComment, error) {
	post, err := e.stores.Posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, apperrors.NotFound(string(domain.KindBlogPost), postID)
	}
	return e.comments.Public(ctx, store.Eq("post_id", postID))
}

// Delete removes an entity. Deleting an absent id succeeds. A post takes
// its comments with it.
func (e *Engine) Delete(ctx context.Context, kind domain.Kind, id uint) error {
	if err := e.requireAdmin(ctx, "delete"); err != nil {
		return err
	}

	var err error
	switch kind {
	case domain.KindApplication:
		err = e.stores.Applications.Delete(ctx, id)
	case domain.KindConsultation:
		err = e.stores.Consultations.Delete(ctx, id)
	case domain.KindInquiry:
		err = e.stores.Inquiries.Delete(ctx, id)
	case domain.KindTestimonial:
		err = e.stores.Testimonials.Delete(ctx, id)
	case domain.KindBlogComment:
		err = e.stores.Comments.Delete(ctx, id)
	case domain.KindBlogPost:
		var n int64
		n, err = e.stores.Comments.DeleteWhere(ctx, map[string]any{"post_id": id})
		if err == nil {
			if n > 0 {
				e.log.Info("comments removed with post", zap.Uint("post_id", id), zap.Int64("comments", n))
			}
			err = e.stores.Posts.Delete(ctx, id)
		}
	default:
		return unknownKind(kind, allKinds)
	}
	if err != nil {
		return err
	}
	e.log.Info("entity deleted", zap.String("kind", string(kind)), zap.Uint("id", id))
	return nil
}
