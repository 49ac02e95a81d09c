package domain

import "time"

// Kind names one of the tracked entity kinds
type Kind string

const (
	KindApplication  Kind = "application"
	KindConsultation Kind = "consultation"
	KindInquiry      Kind = "inquiry"
	KindTestimonial  Kind = "testimonial"
	KindBlogPost     Kind = "blog_post"
	KindBlogComment  Kind = "blog_comment"
)

// IsCase reports whether the kind follows a status lifecycle
func (k Kind) IsCase() bool {
	return k == KindApplication || k == KindConsultation || k == KindInquiry
}

// Base holds the fields common to every tracked entity.
// Version starts at 1 and is bumped by every successful save; stores
// compare it to detect concurrent modification.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
}

// Meta returns the embedded base so generic code can reach it
func (b *Base) Meta() *Base {
	return b
}

// Record is implemented by every persisted entity
type Record interface {
	Meta() *Base
	Kind() Kind
}
