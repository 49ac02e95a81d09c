package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visadesk/internal/domain"
	"visadesk/internal/store"
)

func memorySources(t *testing.T) Sources {
	t.Helper()
	apps, err := store.NewMemory[domain.Application]()
	require.NoError(t, err)
	cons, err := store.NewMemory[domain.Consultation]()
	require.NoError(t, err)
	inqs, err := store.NewMemory[domain.Inquiry]()
	require.NoError(t, err)
	tms, err := store.NewMemory[domain.Testimonial]()
	require.NoError(t, err)
	posts, err := store.NewMemory[domain.BlogPost](store.WithCounters("view_count"))
	require.NoError(t, err)
	comments, err := store.NewMemory[domain.BlogComment]()
	require.NoError(t, err)
	return Sources{
		Applications:  apps,
		Consultations: cons,
		Inquiries:     inqs,
		Testimonials:  tms,
		Posts:         posts,
		Comments:      comments,
	}
}

func TestEmptyStoreIsAllZero(t *testing.T) {
	st, err := NewAggregator(memorySources(t), 5).Compute(context.Background())
	require.NoError(t, err)

	assert.Zero(t, st.Applications.Total)
	assert.Len(t, st.Applications.ByStatus, len(domain.ApplicationStatuses))
	for _, n := range st.Applications.ByStatus {
		assert.Zero(t, n)
	}
	assert.Zero(t, st.Consultations.Total)
	assert.Zero(t, st.Inquiries.Unread)
	assert.Zero(t, st.Posts.Total)
	assert.Zero(t, st.Posts.TotalViews)
	assert.Len(t, st.Posts.ByCategory, len(domain.BlogCategories))
	assert.Zero(t, st.Testimonials.Total)
	assert.Zero(t, st.Comments.Pending)
	assert.Empty(t, st.RecentApplications)
}

func seed(t *testing.T, src Sources) {
	t.Helper()
	ctx := context.Background()
	for _, s := range []domain.ApplicationStatus{
		domain.ApplicationPending, domain.ApplicationPending, domain.ApplicationUnderReview, domain.ApplicationApproved,
	} {
		require.NoError(t, src.Applications.Create(ctx, &domain.Application{Status: s}))
	}
	for _, s := range []domain.ConsultationStatus{domain.ConsultationPending, domain.ConsultationCancelled} {
		require.NoError(t, src.Consultations.Create(ctx, &domain.Consultation{Status: s}))
	}
	for _, s := range []domain.InquiryStatus{domain.InquiryNew, domain.InquiryNew, domain.InquiryReplied} {
		require.NoError(t, src.Inquiries.Create(ctx, &domain.Inquiry{Name: "Q", Status: s}))
	}
	posts := []*domain.BlogPost{
		{Title: "A", Slug: "a", Category: domain.CategoryVisaGuides, Published: true},
		{Title: "B", Slug: "b", Category: domain.CategoryVisaGuides},
		{Title: "C", Slug: "c", Category: domain.CategoryTravelTips, Published: true},
	}
	for _, p := range posts {
		require.NoError(t, src.Posts.Create(ctx, p))
	}
	require.NoError(t, src.Posts.Increment(ctx, posts[0].ID, "view_count", 7))
	require.NoError(t, src.Posts.Increment(ctx, posts[2].ID, "view_count", 2))

	approved := &domain.Testimonial{ClientName: "A", Rating: 5}
	approved.SetModeration(domain.ModerationApproved)
	approved.IsFeatured = true
	pending := &domain.Testimonial{ClientName: "B", Rating: 4}
	pending.SetModeration(domain.ModerationPending)
	require.NoError(t, src.Testimonials.Create(ctx, approved))
	require.NoError(t, src.Testimonials.Create(ctx, pending))

	require.NoError(t, src.Comments.Create(ctx, &domain.BlogComment{PostID: posts[0].ID, Moderation: domain.ModerationPending}))
	require.NoError(t, src.Comments.Create(ctx, &domain.BlogComment{PostID: posts[0].ID, Moderation: domain.ModerationRejected}))
}

func TestCounts(t *testing.T) {
	src := memorySources(t)
	seed(t, src)

	st, err := NewAggregator(src, 2).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), st.Applications.Total)
	assert.Equal(t, int64(2), st.Applications.ByStatus["pending"])
	assert.Equal(t, int64(1), st.Applications.ByStatus["under-review"])
	assert.Equal(t, int64(0), st.Applications.ByStatus["rejected"])

	assert.Equal(t, int64(2), st.Consultations.Total)
	assert.Equal(t, int64(1), st.Consultations.ByStatus["cancelled"])

	assert.Equal(t, int64(3), st.Inquiries.Total)
	assert.Equal(t, int64(2), st.Inquiries.Unread)

	assert.Equal(t, int64(3), st.Posts.Total)
	assert.Equal(t, int64(2), st.Posts.Published)
	assert.Equal(t, int64(2), st.Posts.ByCategory["visa-guides"])
	assert.Equal(t, int64(9), st.Posts.TotalViews)

	assert.Equal(t, int64(2), st.Testimonials.Total)
	assert.Equal(t, int64(1), st.Testimonials.Pending)
	assert.Equal(t, int64(1), st.Testimonials.Featured)
	assert.Equal(t, int64(1), st.Comments.Pending)
	assert.Equal(t, int64(1), st.Comments.Rejected)

	require.Len(t, st.RecentApplications, 2)
	assert.Equal(t, uint(4), st.RecentApplications[0].ID)
}

func TestComputeIsIdempotentAndReadOnly(t *testing.T) {
	src := memorySources(t)
	seed(t, src)
	agg := NewAggregator(src, 5)

	first, err := agg.Compute(context.Background())
	require.NoError(t, err)
	second, err := agg.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	apps, err := src.Applications.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	for _, a := range apps {
		assert.Equal(t, int64(1), a.Version)
	}
}

func TestComputeReflectsNewWrites(t *testing.T) {
	src := memorySources(t)
	agg := NewAggregator(src, 5)

	before, err := agg.Compute(context.Background())
	require.NoError(t, err)
	require.NoError(t, src.Inquiries.Create(context.Background(), &domain.Inquiry{Status: domain.InquiryNew}))
	after, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Zero(t, before.Inquiries.Unread)
	assert.Equal(t, int64(1), after.Inquiries.Unread)
}
