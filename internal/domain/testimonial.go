package domain

// Testimonial is a client review shown publicly once approved
type Testimonial struct {
	Base
	ClientName string           `gorm:"size:100;not null" json:"client_name"`
	Location   *string          `gorm:"size:100" json:"location,omitempty"`
	VisaType   *string          `gorm:"size:100" json:"visa_type,omitempty"`
	Country    *string          `gorm:"size:100" json:"country,omitempty"`
	Rating     int              `gorm:"not null" json:"rating"`
	Content    string           `gorm:"type:text;not null" json:"content"`
	PhotoURL   *string          `gorm:"size:1024" json:"photo_url,omitempty"`
	IsApproved bool             `gorm:"not null;default:false;index" json:"is_approved"`
	IsFeatured bool             `gorm:"not null;default:false" json:"is_featured"`
	Moderation ModerationStatus `gorm:"size:20;not null;index" json:"moderation"`
}

// TableName specifies the table name for Testimonial
func (Testimonial) TableName() string {
	return "testimonials"
}

func (Testimonial) Kind() Kind {
	return KindTestimonial
}

func (t *Testimonial) ModerationState() ModerationStatus {
	return t.Moderation
}

func (t *Testimonial) SetModeration(s ModerationStatus) {
	t.Moderation = s
	t.IsApproved = s == ModerationApproved
	if !t.IsApproved {
		t.IsFeatured = false
	}
}

// TestimonialInput is the public submission payload
type TestimonialInput struct {
	ClientName string  `json:"client_name" validate:"required,min=2,max=100"`
	Location   *string `json:"location,omitempty" validate:"omitempty,max=100"`
	VisaType   *string `json:"visa_type,omitempty" validate:"omitempty,max=100"`
	Country    *string `json:"country,omitempty" validate:"omitempty,max=100"`
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	Content    string  `json:"content" validate:"required,max=5000"`
	PhotoURL   *string `json:"photo_url,omitempty" validate:"omitempty,url,max=1024"`
}

func (in *TestimonialInput) Normalize() {
	trim(&in.ClientName, &in.Content)
	in.Location = trimOptional(in.Location)
	in.VisaType = trimOptional(in.VisaType)
	in.Country = trimOptional(in.Country)
	in.PhotoURL = trimOptional(in.PhotoURL)
}

// NewTestimonial builds an unapproved testimonial from a validated input
func NewTestimonial(in TestimonialInput) *Testimonial {
	return &Testimonial{
		ClientName: in.ClientName,
		Location:   in.Location,
		VisaType:   in.VisaType,
		Country:    in.Country,
		Rating:     in.Rating,
		Content:    in.Content,
		PhotoURL:   in.PhotoURL,
		Moderation: ModerationPending,
	}
}
