package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"visadesk/internal/domain"
	"visadesk/internal/metrics"
	"visadesk/internal/moderation"
	"visadesk/internal/notify"
	"visadesk/internal/slug"
	"visadesk/internal/store"
	apperrors "visadesk/pkg/errors"
)

// slugRetries bounds how often a post is recreated after losing a slug race
const slugRetries = 3

// CommentSubmission is a reader comment addressed to a post
type CommentSubmission struct {
	PostID uint
	Input  domain.CommentInput
}

// SubmitContent stores user or editorial content of the given kind.
// Testimonials and comments enter moderation; posts are admin-only.
func (e *Engine) SubmitContent(ctx context.Context, kind domain.Kind, payload any) (domain.Record, error) {
	switch in := payload.(type) {
	case domain.TestimonialInput:
		if kind == domain.KindTestimonial {
			return e.SubmitTestimonial(ctx, in)
		}
	case domain.PostInput:
		if kind == domain.KindBlogPost {
			return e.CreatePost(ctx, in)
		}
	case CommentSubmission:
		if kind == domain.KindBlogComment {
			return e.AddComment(ctx, in.PostID, in.Input)
		}
	default:
		if kind != domain.KindTestimonial && kind != domain.KindBlogPost && kind != domain.KindBlogComment {
			return nil, unknownKind(kind, "testimonial, blog_post, blog_comment")
		}
	}
	return nil, apperrors.Validation(fmt.Sprintf("payload %T does not match kind %s", payload, kind),
		map[string]string{"payload": "must be a " + string(kind) + " submission"})
}

// SubmitTestimonial stores a testimonial awaiting moderation
func (e *Engine) SubmitTestimonial(ctx context.Context, in domain.TestimonialInput) (*domain.Testimonial, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	t := domain.NewTestimonial(in)
	if err := e.testimonials.Submit(ctx, t); err != nil {
		return nil, err
	}
	metrics.RecordSubmission(string(domain.KindTestimonial))

	ev := notify.NewEvent(notify.ContentSubmitted, domain.KindTestimonial, t.ID)
	ev.ContactName = t.ClientName
	ev.Summary = fmt.Sprintf("%d-star testimonial", t.Rating)
	e.emit(ev)
	return t, nil
}

// AddComment stores a reader comment on a published post, pending moderation
func (e *Engine) AddComment(ctx context.Context, postID uint, in domain.CommentInput) (*domain.BlogComment, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	post, err := e.stores.Posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	// drafts are invisible to the public
	if !post.Published {
		return nil, apperrors.NotFound(string(domain.KindBlogPost), postID)
	}

	c := &domain.BlogComment{
		PostID:      postID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
	}
	if err := e.comments.Submit(ctx, c); err != nil {
		return nil, err
	}
	metrics.RecordSubmission(string(domain.KindBlogComment))

	ev := notify.NewEvent(notify.ContentSubmitted, domain.KindBlogComment, c.ID)
	ev.ContactName = c.AuthorName
	ev.Summary = "comment on " + post.Title
	e.emit(ev)
	return c, nil
}

// Moderate applies an approve or reject decision to a testimonial or comment
func (e *Engine) Moderate(ctx context.Context, kind domain.Kind, id uint, d moderation.Decision) (domain.Record, error) {
	if err := e.requireAdmin(ctx, "moderate"); err != nil {
		return nil, err
	}

	var (
		rec     domain.Record
		changed bool
		err     error
	)
	switch kind {
	case domain.KindTestimonial:
		var t *domain.Testimonial
		t, changed, err = e.testimonials.Decide(ctx, id, d)
		rec = t
	case domain.KindBlogComment:
		var c *domain.BlogComment
		c, changed, err = e.comments.Decide(ctx, id, d)
		rec = c
	default:
		return nil, unknownKind(kind, "testimonial, blog_comment")
	}
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.RecordModeration(string(kind), string(d))
	}
	return rec, nil
}

// SetTestimonialFeatured features or unfeatures a testimonial. Only
// approved testimonials can be featured.
func (e *Engine) SetTestimonialFeatured(ctx context.Context, id uint, featured bool) (*domain.Testimonial, error) {
	if err := e.requireAdmin(ctx, "feature testimonial"); err != nil {
		return nil, err
	}
	return e.stores.Testimonials.Update(ctx, id, func(t *domain.Testimonial) error {
		if featured && t.Moderation != domain.ModerationApproved {
			return apperrors.IllegalTransition(string(domain.KindTestimonial), id,
				string(t.Moderation), "featured")
		}
		t.IsFeatured = featured
		return nil
	})
}

// CreatePost stores a new post under a unique slug derived from its title
func (e *Engine) CreatePost(ctx context.Context, in domain.PostInput) (*domain.BlogPost, error) {
	if err := e.requireAdmin(ctx, "create post"); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	base := slug.Make(in.Title)
	exists := func(ctx context.Context, candidate string) (bool, error) {
		n, err := e.stores.Posts.Count(ctx, store.Eq("slug", candidate))
		return n > 0, err
	}

	var lastErr error
	for attempt := 0; attempt < slugRetries; attempt++ {
		s, err := slug.Unique(ctx, base, exists, e.slugAttempts)
		if err != nil {
			return nil, err
		}
		post := newPost(in, s)
		if post.Published {
			now := e.now()
			post.PublishedAt = &now
		}

		err = e.stores.Posts.Create(ctx, post)
		if err == nil {
			e.log.Info("post created",
				zap.Uint("id", post.ID),
				zap.String("slug", post.Slug),
				zap.Bool("published", post.Published))
			return post, nil
		}
		if !apperrors.IsConflict(err) {
			return nil, err
		}
		// another writer took the slug between the check and the insert
		lastErr = err
	}
	return nil, lastErr
}

func newPost(in domain.PostInput, s string) *domain.BlogPost {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.BlogPost{
		Title:         in.Title,
		Slug:          s,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		FeaturedImage: in.FeaturedImage,
		Tags:          tags,
		Category:      in.Category,
		Author:        in.Author,
		Published:     in.Published,
	}
}

// UpdatePost applies an editorial patch; the slug never changes
func (e *Engine) UpdatePost(ctx context.Context, id uint, patch domain.PostPatch) (*domain.BlogPost, error) {
	if err := e.requireAdmin(ctx, "update post"); err != nil {
		return nil, err
	}
	patch.Normalize()
	if err := domain.Validate(patch); err != nil {
		return nil, err
	}
	return e.stores.Posts.Update(ctx, id, func(p *domain.BlogPost) error {
		patch.Apply(p)
		return nil
	})
}

// SetPostPublished publishes or unpublishes a post. The first publication
// time is kept across unpublishing.
func (e *Engine) SetPostPublished(ctx context.Context, id uint, published bool) (*domain.BlogPost, error) {
	if err := e.requireAdmin(ctx, "publish post"); err != nil {
		return nil, err
	}
	return e.stores.Posts.Update(ctx, id, func(p *domain.BlogPost) error {
		if published && p.PublishedAt == nil {
			now := e.now()
			p.PublishedAt = &now
		}
		p.Published = published
		return nil
	})
}

// RecordView atomically counts one read of a post
func (e *Engine) RecordView(ctx context.Context, postID uint) error {
	if err := e.stores.Posts.Increment(ctx, postID, "view_count", 1); err != nil {
		return err
	}
	metrics.RecordBlogView()
	return nil
}

// GetPublishedPost finds a published post by slug and counts the view
func (e *Engine) GetPublishedPost(ctx context.Context, s string) (*domain.BlogPost, error) {
	posts, err := e.stores.Posts.List(ctx, store.Filter{
		Where: map[string]any{"slug": s, "published": true},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, apperrors.NotFound(string(domain.KindBlogPost), s)
	}
	post := posts[0]

	if err := e.RecordView(ctx, post.ID); err != nil {
		return nil, err
	}
	post.ViewCount++
	return post, nil
}
