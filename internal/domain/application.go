package domain

import "time"

// PersonalInfo identifies the applicant
type PersonalInfo struct {
	FullName       string `gorm:"size:100;not null" json:"full_name" validate:"required,min=2,max=100"`
	Email          string `gorm:"size:255;not null;index" json:"email" validate:"required,email"`
	Phone          string `gorm:"size:20;not null" json:"phone" validate:"required,phone"`
	DateOfBirth    string `gorm:"size:10;not null" json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Nationality    string `gorm:"size:100;not null" json:"nationality" validate:"required,max=100"`
	PassportNumber string `gorm:"size:30;not null" json:"passport_number" validate:"required,alphanum,min=5,max=30"`
	PassportExpiry string `gorm:"size:10;not null" json:"passport_expiry" validate:"required,datetime=2006-01-02"`
}

// VisaInfo describes what the applicant is applying for
type VisaInfo struct {
	DestinationCountry string  `gorm:"size:100;not null;index" json:"destination_country" validate:"required,max=100"`
	VisaType           string  `gorm:"size:100;not null" json:"visa_type" validate:"required,max=100"`
	Purpose            string  `gorm:"type:text;not null" json:"purpose" validate:"required,max=2000"`
	IntendedDate       *string `gorm:"size:10" json:"intended_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Duration           *string `gorm:"size:50" json:"duration,omitempty" validate:"omitempty,max=50"`
}

// Document references an uploaded file; the file itself lives in object storage
type Document struct {
	Name       string    `json:"name" validate:"required,max=255"`
	Path       string    `json:"path" validate:"required,max=1024"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Application represents a visa application case
type Application struct {
	Base
	PersonalInfo PersonalInfo      `gorm:"embedded;embeddedPrefix:personal_" json:"personal_info"`
	VisaInfo     VisaInfo          `gorm:"embedded;embeddedPrefix:visa_" json:"visa_info"`
	Documents    []Document        `gorm:"type:text;serializer:json" json:"documents"`
	AdminNotes   string            `gorm:"type:text" json:"admin_notes"`
	Status       ApplicationStatus `gorm:"size:20;not null;index" json:"status"`
}

// TableName specifies the table name for Application
func (Application) TableName() string {
	return "applications"
}

func (Application) Kind() Kind {
	return KindApplication
}

// ApplicationInput is the public submission payload
type ApplicationInput struct {
	PersonalInfo PersonalInfo `json:"personal_info" validate:"required"`
	VisaInfo     VisaInfo     `json:"visa_info" validate:"required"`
	Documents    []Document   `json:"documents" validate:"omitempty,max=20,dive"`
}

// Normalize trims free-text fields and lowercases the email
func (in *ApplicationInput) Normalize() {
	p := &in.PersonalInfo
	trim(&p.FullName, &p.Phone, &p.DateOfBirth, &p.Nationality, &p.PassportExpiry)
	p.Email = normalizeEmail(p.Email)
	p.PassportNumber = normalizeCode(p.PassportNumber)

	v := &in.VisaInfo
	trim(&v.DestinationCountry, &v.VisaType, &v.Purpose)
	v.IntendedDate = trimOptional(v.IntendedDate)
	v.Duration = trimOptional(v.Duration)

	for i := range in.Documents {
		trim(&in.Documents[i].Name, &in.Documents[i].Path)
	}
}

// NewApplication builds a pending application from a validated input
func NewApplication(in ApplicationInput, now time.Time) *Application {
	docs := make([]Document, len(in.Documents))
	for i, d := range in.Documents {
		d.UploadedAt = now
		docs[i] = d
	}
	return &Application{
		PersonalInfo: in.PersonalInfo,
		VisaInfo:     in.VisaInfo,
		Documents:    docs,
		Status:       ApplicationPending,
	}
}
