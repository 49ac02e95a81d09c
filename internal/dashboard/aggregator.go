// Package dashboard computes the administrator overview from the entity stores.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"visadesk/internal/domain"
	"visadesk/internal/store"
)

// Sources are the stores the overview reads from
type Sources struct {
	Applications  store.Store[domain.Application]
	Consultations store.Store[domain.Consultation]
	Inquiries     store.Store[domain.Inquiry]
	Testimonials  store.Store[domain.Testimonial]
	Posts         store.Store[domain.BlogPost]
	Comments      store.Store[domain.BlogComment]
}

// CaseCounts holds a total and a count for every status, zeros included
type CaseCounts struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// InquiryCounts adds the unread (status new) count
type InquiryCounts struct {
	CaseCounts
	Unread int64 `json:"unread"`
}

// PostCounts summarizes the blog
type PostCounts struct {
	Total      int64            `json:"total"`
	Published  int64            `json:"published"`
	ByCategory map[string]int64 `json:"by_category"`
	TotalViews int64            `json:"total_views"`
}

// ModerationCounts summarizes a moderated content kind
type ModerationCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// TestimonialCounts adds featured testimonials
type TestimonialCounts struct {
	ModerationCounts
	Featured int64 `json:"featured"`
}

// Stats is the full overview
type Stats struct {
	Applications       CaseCounts            `json:"applications"`
	Consultations      CaseCounts            `json:"consultations"`
	Inquiries          InquiryCounts         `json:"inquiries"`
	Posts              PostCounts            `json:"posts"`
	Testimonials       TestimonialCounts     `json:"testimonials"`
	Comments           ModerationCounts      `json:"comments"`
	RecentApplications []*domain.Application `json:"recent_applications"`
	RecentInquiries    []*domain.Inquiry     `json:"recent_inquiries"`
}

// Aggregator recomputes Stats from scratch on every call and never writes
type Aggregator struct {
	src    Sources
	recent int
}

// NewAggregator creates an aggregator listing up to recent latest cases
func NewAggregator(src Sources, recent int) *Aggregator {
	return &Aggregator{src: src, recent: recent}
}

// Compute reads every store concurrently and assembles the overview
func (a *Aggregator) Compute(ctx context.Context) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		st.Applications, err = caseCounts(ctx, a.src.Applications, domain.ApplicationStatuses)
		return err
	})
	g.Go(func() (err error) {
		st.Consultations, err = caseCounts(ctx, a.src.Consultations, domain.ConsultationStatuses)
		return err
	})
	g.Go(func() (err error) {
		st.Inquiries.CaseCounts, err = caseCounts(ctx, a.src.Inquiries, domain.InquiryStatuses)
		if err != nil {
			return err
		}
		st.Inquiries.Unread = st.Inquiries.ByStatus[string(domain.InquiryNew)]
		return nil
	})
	g.Go(func() (err error) {
		st.Posts, err = postCounts(ctx, a.src.Posts)
		return err
	})
	g.Go(func() (err error) {
		st.Testimonials.ModerationCounts, err = moderationCounts(ctx, a.src.Testimonials)
		if err != nil {
			return err
		}
		st.Testimonials.Featured, err = a.src.Testimonials.Count(ctx, store.Eq("is_featured", true))
		return err
	})
	g.Go(func() (err error) {
		st.Comments, err = moderationCounts(ctx, a.src.Comments)
		return err
	})
	g.Go(func() (err error) {
		st.RecentApplications, err = a.src.Applications.List(ctx, store.Filter{Desc: true, Limit: a.recent})
		return err
	})
	g.Go(func() (err error) {
		st.RecentInquiries, err = a.src.Inquiries.List(ctx, store.Filter{Desc: true, Limit: a.recent})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func caseCounts[T any, S ~string](ctx context.Context, s store.Store[T], statuses []S) (CaseCounts, error) {
	raw, err := s.CountBy(ctx, "status", store.Filter{})
	if err != nil {
		return CaseCounts{}, err
	}
	out := CaseCounts{ByStatus: make(map[string]int64, len(statuses))}
	for _, st := range statuses {
		out.ByStatus[string(st)] = raw[string(st)]
	}
	for _, n := range raw {
		out.Total += n
	}
	return out, nil
}

func postCounts(ctx context.Context, s store.Store[domain.BlogPost]) (PostCounts, error) {
	raw, err := s.CountBy(ctx, "category", store.Filter{})
	if err != nil {
		return PostCounts{}, err
	}
	out := PostCounts{ByCategory: make(map[string]int64, len(domain.BlogCategories))}
	for _, c := range domain.BlogCategories {
		out.ByCategory[string(c)] = raw[string(c)]
	}
	for _, n := range raw {
		out.Total += n
	}
	if out.Published, err = s.Count(ctx, store.Eq("published", true)); err != nil {
		return PostCounts{}, err
	}
	if out.TotalViews, err = s.Sum(ctx, "view_count", store.Filter{}); err != nil {
		return PostCounts{}, err
	}
	return out, nil
}

func moderationCounts[T any](ctx context.Context, s store.Store[T]) (ModerationCounts, error) {
	raw, err := s.CountBy(ctx, "moderation", store.Filter{})
	if err != nil {
		return ModerationCounts{}, err
	}
	out := ModerationCounts{
		Pending:  raw[string(domain.ModerationPending)],
		Approved: raw[string(domain.ModerationApproved)],
		Rejected: raw[string(domain.ModerationRejected)],
	}
	for _, n := range raw {
		out.Total += n
	}
	return out, nil
}
