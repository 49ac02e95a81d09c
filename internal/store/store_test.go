package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"visadesk/internal/database"
	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

type backend struct {
	name         string
	posts        func(t *testing.T) Store[domain.BlogPost]
	applications func(t *testing.T) Store[domain.Application]
}

func sqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			posts: func(t *testing.T) Store[domain.BlogPost] {
				s, err := NewMemory[domain.BlogPost](WithCounters("view_count"))
				require.NoError(t, err)
				return s
			},
			applications: func(t *testing.T) Store[domain.Application] {
				s, err := NewMemory[domain.Application]()
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "sqlite",
			posts: func(t *testing.T) Store[domain.BlogPost] {
				s, err := NewGorm[domain.BlogPost](sqliteDB(t), WithCounters("view_count"))
				require.NoError(t, err)
				return s
			},
			applications: func(t *testing.T) Store[domain.Application] {
				s, err := NewGorm[domain.Application](sqliteDB(t))
				require.NoError(t, err)
				return s
			},
		},
	}
}

func newPost(slug string, category domain.BlogCategory, published bool) *domain.BlogPost {
	return &domain.BlogPost{
		Title:     "Post " + slug,
		Slug:      slug,
		Content:   "body",
		Tags:      []string{"visa"},
		Category:  category,
		Author:    "Admin",
		Published: published,
	}
}

func newApplication(email string, status domain.ApplicationStatus) *domain.Application {
	return &domain.Application{
		PersonalInfo: domain.PersonalInfo{
			FullName:       "Asha Rao",
			Email:          email,
			Phone:          "+91 98765 43210",
			DateOfBirth:    "1990-04-12",
			Nationality:    "Indian",
			PassportNumber: "Z1234567",
			PassportExpiry: "2031-01-01",
		},
		VisaInfo: domain.VisaInfo{
			DestinationCountry: "Canada",
			VisaType:           "Student",
			Purpose:            "Masters",
		},
		Documents: []domain.Document{{Name: "passport.pdf", Path: "docs/passport.pdf"}},
		Status:    status,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.applications(t)

			app := newApplication("asha@example.com", domain.ApplicationPending)
			require.NoError(t, s.Create(ctx, app))
			assert.NotZero(t, app.ID)
			assert.Equal(t, int64(1), app.Version)
			assert.False(t, app.CreatedAt.IsZero())

			got, err := s.Get(ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, "asha@example.com", got.PersonalInfo.Email)
			assert.Equal(t, "Canada", got.VisaInfo.DestinationCountry)
			require.Len(t, got.Documents, 1)
			assert.Equal(t, "passport.pdf", got.Documents[0].Name)
			assert.Equal(t, domain.ApplicationPending, got.Status)
		})
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.posts(t).Get(context.Background(), 999)
			assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		})
	}
}

func TestSaveBumpsVersion(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.applications(t)
			app := newApplication("a@example.com", domain.ApplicationPending)
			require.NoError(t, s.Create(ctx, app))

			app.Status = domain.ApplicationUnderReview
			require.NoError(t, s.Save(ctx, app))
			assert.Equal(t, int64(2), app.Version)

			got, err := s.Get(ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.ApplicationUnderReview, got.Status)
			assert.Equal(t, int64(2), got.Version)
		})
	}
}

func TestSaveStaleVersionConflicts(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.applications(t)
			app := newApplication("a@example.com", domain.ApplicationPending)
			require.NoError(t, s.Create(ctx, app))

			first, err := s.Get(ctx, app.ID)
			require.NoError(t, err)
			second, err := s.Get(ctx, app.ID)
			require.NoError(t, err)

			first.Status = domain.ApplicationUnderReview
			require.NoError(t, s.Save(ctx, first))

			second.AdminNotes = "stale"
			err = s.Save(ctx, second)
			assert.True(t, apperrors.IsConflict(err), "got %v", err)
			assert.Equal(t, int64(1), second.Version)

			got, err := s.Get(ctx, app.ID)
			require.NoError(t, err)
			assert.Empty(t, got.AdminNotes)
			assert.Equal(t, domain.ApplicationUnderReview, got.Status)
		})
	}
}

func TestSaveMissingIsNotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			post := newPost("ghost", domain.CategoryGeneral, false)
			post.ID = 42
			post.Version = 1
			err := b.posts(t).Save(context.Background(), post)
			assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		})
	}
}

func TestUniqueSlugConflicts(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			require.NoError(t, s.Create(ctx, newPost("visa-guide", domain.CategoryVisaGuides, false)))

			dup := newPost("visa-guide", domain.CategoryGeneral, false)
			err := s.Create(ctx, dup)
			assert.True(t, apperrors.IsConflict(err), "got %v", err)

			n, err := s.Count(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestListFilterOrderAndPaging(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			for i := 1; i <= 5; i++ {
				require.NoError(t, s.Create(ctx, newPost(fmt.Sprintf("p-%d", i), domain.CategoryTravelTips, i%2 == 1)))
			}

			published, err := s.List(ctx, Eq("published", true))
			require.NoError(t, err)
			require.Len(t, published, 3)
			assert.Equal(t, "p-1", published[0].Slug)
			assert.Equal(t, "p-5", published[2].Slug)

			desc, err := s.List(ctx, Filter{Desc: true, Offset: 1, Limit: 2})
			require.NoError(t, err)
			require.Len(t, desc, 2)
			assert.Equal(t, "p-4", desc[0].Slug)
			assert.Equal(t, "p-3", desc[1].Slug)

			_, err = s.List(ctx, Eq("no_such_column", 1))
			assert.Error(t, err)
		})
	}
}

func TestCountByAndSum(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.applications(t)
			statuses := []domain.ApplicationStatus{
				domain.ApplicationPending, domain.ApplicationPending, domain.ApplicationApproved,
			}
			for i, st := range statuses {
				require.NoError(t, s.Create(ctx, newApplication(fmt.Sprintf("a%d@example.com", i), st)))
			}

			counts, err := s.CountBy(ctx, "status", Filter{})
			require.NoError(t, err)
			assert.Equal(t, map[string]int64{"pending": 2, "approved": 1}, counts)

			posts := b.posts(t)
			p := newPost("counted", domain.CategoryGeneral, true)
			require.NoError(t, posts.Create(ctx, p))
			require.NoError(t, posts.Increment(ctx, p.ID, "view_count", 3))
			total, err := posts.Sum(ctx, "view_count", Filter{})
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
		})
	}
}

func TestIncrementIsAtomicAndPreservedBySave(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			post := newPost("popular", domain.CategoryGeneral, true)
			require.NoError(t, s.Create(ctx, post))

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Increment(ctx, post.ID, "view_count", 1))
				}()
			}
			wg.Wait()

			// an edit based on a read taken before the views must not reset them
			post.Title = "Popular post"
			require.NoError(t, s.Save(ctx, post))

			got, err := s.Get(ctx, post.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(20), got.ViewCount)
			assert.Equal(t, "Popular post", got.Title)
			assert.Equal(t, int64(2), got.Version)
		})
	}
}

func TestIncrementRejectsUnknownCounter(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			post := newPost("p", domain.CategoryGeneral, true)
			require.NoError(t, s.Create(ctx, post))

			assert.Error(t, s.Increment(ctx, post.ID, "version", 1))
			err := s.Increment(ctx, 999, "view_count", 1)
			assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			post := newPost("gone", domain.CategoryGeneral, false)
			require.NoError(t, s.Create(ctx, post))

			require.NoError(t, s.Delete(ctx, post.ID))
			require.NoError(t, s.Delete(ctx, post.ID))
			_, err := s.Get(ctx, post.ID)
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}

func TestDeleteWhere(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.posts(t)
			require.NoError(t, s.Create(ctx, newPost("a", domain.CategoryGeneral, false)))
			require.NoError(t, s.Create(ctx, newPost("b", domain.CategoryGeneral, true)))

			n, err := s.DeleteWhere(ctx, map[string]any{"published": false})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = s.DeleteWhere(ctx, nil)
			assert.Error(t, err)
		})
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.applications(t)
			app := newApplication("a@example.com", domain.ApplicationPending)
			require.NoError(t, s.Create(ctx, app))

			got, err := s.Update(ctx, app.ID, func(a *domain.Application) error {
				a.AdminNotes = "called applicant"
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, "called applicant", got.AdminNotes)
			assert.Equal(t, int64(2), got.Version)

			_, err = s.Update(ctx, 999, func(*domain.Application) error { return nil })
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemory[domain.BlogPost](WithCounters("view_count"))
	require.NoError(t, err)
	post := newPost("copy", domain.CategoryGeneral, false)
	require.NoError(t, s.Create(ctx, post))

	got, err := s.Get(ctx, post.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	again, err := s.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"visa"}, again.Tags)
	assert.Equal(t, "Post copy", again.Title)
}

func TestCancelledContext(t *testing.T) {
	s, err := NewMemory[domain.BlogPost]()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Get(ctx, 1)
	assert.True(t, apperrors.IsUnavailable(err), "got %v", err)
}

func TestGormTimeoutIsUnavailable(t *testing.T) {
	s, err := NewGorm[domain.BlogPost](sqliteDB(t), WithTimeout(time.Nanosecond))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	_, err = s.List(context.Background(), Filter{})
	if err != nil {
		assert.True(t, apperrors.IsUnavailable(err), "got %v", err)
	}
}
