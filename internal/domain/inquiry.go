package domain

import "time"

// Inquiry represents a contact form submission
type Inquiry struct {
	Base
	Name       string        `gorm:"size:100;not null" json:"name"`
	Email      string        `gorm:"size:255;not null;index" json:"email"`
	Phone      *string       `gorm:"size:20" json:"phone,omitempty"`
	Subject    string        `gorm:"size:200;not null" json:"subject"`
	Message    string        `gorm:"type:text;not null" json:"message"`
	VisaType   *string       `gorm:"size:100" json:"visa_type,omitempty"`
	Country    *string       `gorm:"size:100" json:"country,omitempty"`
	Status     InquiryStatus `gorm:"size:20;not null;index" json:"status"`
	AdminReply *string       `gorm:"type:text" json:"admin_reply,omitempty"`
	RepliedAt  *time.Time    `json:"replied_at,omitempty"`
}

// TableName specifies the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

func (Inquiry) Kind() Kind {
	return KindInquiry
}

// InquiryInput is the public contact form payload
type InquiryInput struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Subject  string  `json:"subject" validate:"required,max=200"`
	Message  string  `json:"message" validate:"required,max=5000"`
	VisaType *string `json:"visa_type,omitempty" validate:"omitempty,max=100"`
	Country  *string `json:"country,omitempty" validate:"omitempty,max=100"`
}

func (in *InquiryInput) Normalize() {
	trim(&in.Name, &in.Subject, &in.Message)
	in.Email = normalizeEmail(in.Email)
	in.Phone = trimOptional(in.Phone)
	in.VisaType = trimOptional(in.VisaType)
	in.Country = trimOptional(in.Country)
}

// NewInquiry builds a new inquiry from a validated input
func NewInquiry(in InquiryInput) *Inquiry {
	return &Inquiry{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Subject:  in.Subject,
		Message:  in.Message,
		VisaType: in.VisaType,
		Country:  in.Country,
		Status:   InquiryNew,
	}
}
