package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"visadesk/internal/domain"
	"visadesk/internal/store"
	apperrors "visadesk/pkg/errors"
)

func newTestimonialGate(t *testing.T) *Gate[domain.Testimonial, *domain.Testimonial] {
	t.Helper()
	s, err := store.NewMemory[domain.Testimonial]()
	require.NoError(t, err)
	return NewGate[domain.Testimonial](store.Store[domain.Testimonial](s), zap.NewNop())
}

func testimonial(name string) *domain.Testimonial {
	return &domain.Testimonial{ClientName: name, Rating: 5, Content: "Great service"}
}

func TestSubmitForcesPending(t *testing.T) {
	ctx := context.Background()
	g := newTestimonialGate(t)

	tm := testimonial("Ravi")
	tm.SetModeration(domain.ModerationApproved)
	tm.IsFeatured = true
	require.NoError(t, g.Submit(ctx, tm))

	assert.Equal(t, domain.ModerationPending, tm.Moderation)
	assert.False(t, tm.IsApproved)
	assert.False(t, tm.IsFeatured)

	pending, err := g.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestApproveMakesPublicOnce(t *testing.T) {
	ctx := context.Background()
	g := newTestimonialGate(t)
	tm := testimonial("Ravi")
	require.NoError(t, g.Submit(ctx, tm))

	public, err := g.Public(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, public)

	_, changed, err := g.Decide(ctx, tm.ID, Approve)
	require.NoError(t, err)
	assert.True(t, changed)

	_, changed, err = g.Decide(ctx, tm.ID, Approve)
	require.NoError(t, err)
	assert.False(t, changed)

	public, err = g.Public(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, tm.ID, public[0].ID)
	assert.True(t, public[0].IsApproved)
}

func TestRejectIsPermanentAndHidden(t *testing.T) {
	ctx := context.Background()
	g := newTestimonialGate(t)
	tm := testimonial("Mei")
	require.NoError(t, g.Submit(ctx, tm))

	_, _, err := g.Decide(ctx, tm.ID, Approve)
	require.NoError(t, err)
	got, _, err := g.Decide(ctx, tm.ID, Reject)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationRejected, got.Moderation)
	assert.False(t, got.IsApproved)

	_, _, err = g.Decide(ctx, tm.ID, Approve)
	assert.True(t, apperrors.IsIllegalTransition(err), "got %v", err)

	public, err := g.Public(ctx, store.Filter{Where: map[string]any{"moderation": domain.ModerationRejected}})
	require.NoError(t, err)
	assert.Empty(t, public)
}

func TestDecideErrors(t *testing.T) {
	ctx := context.Background()
	g := newTestimonialGate(t)

	_, _, err := g.Decide(ctx, 404, Approve)
	assert.True(t, apperrors.IsNotFound(err))

	_, _, err = g.Decide(ctx, 1, Decision("maybe"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestCommentGate(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewMemory[domain.BlogComment]()
	require.NoError(t, err)
	g := NewGate[domain.BlogComment](store.Store[domain.BlogComment](s), zap.NewNop())

	for _, post := range []uint{1, 1, 2} {
		require.NoError(t, g.Submit(ctx, &domain.BlogComment{
			PostID: post, AuthorName: "Lee", AuthorEmail: "lee@example.com", Content: "Thanks",
		}))
	}
	_, _, err = g.Decide(ctx, 1, Approve)
	require.NoError(t, err)
	_, _, err = g.Decide(ctx, 3, Approve)
	require.NoError(t, err)

	onPost1, err := g.Public(ctx, store.Eq("post_id", uint(1)))
	require.NoError(t, err)
	require.Len(t, onPost1, 1)
	assert.Equal(t, uint(1), onPost1[0].ID)
}
