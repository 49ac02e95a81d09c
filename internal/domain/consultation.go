package domain

import (
	"fmt"
	"time"
)

// ClientInfo identifies who booked a consultation
type ClientInfo struct {
	Name  string `gorm:"size:100;not null" json:"name" validate:"required,min=2,max=100"`
	Email string `gorm:"size:255;not null;index" json:"email" validate:"required,email"`
	Phone string `gorm:"size:20;not null" json:"phone" validate:"required,phone"`
}

// ConsultationDetails describes the requested consultation
type ConsultationDetails struct {
	VisaType      string              `gorm:"size:100;not null" json:"visa_type" validate:"required,max=100"`
	Country       string              `gorm:"size:100;not null" json:"country" validate:"required,max=100"`
	PreferredDate string              `gorm:"size:10" json:"preferred_date" validate:"omitempty,datetime=2006-01-02"`
	PreferredTime string              `gorm:"size:5" json:"preferred_time" validate:"omitempty,datetime=15:04"`
	Message       *string             `gorm:"type:text" json:"message,omitempty" validate:"omitempty,max=5000"`
	Channel       ConsultationChannel `gorm:"size:20;not null" json:"channel" validate:"required,oneof=in-person online phone"`
}

// Consultation represents a consultation booking case
type Consultation struct {
	Base
	ClientInfo  ClientInfo          `gorm:"embedded;embeddedPrefix:client_" json:"client_info"`
	Details     ConsultationDetails `gorm:"embedded;embeddedPrefix:details_" json:"details"`
	Status      ConsultationStatus  `gorm:"size:20;not null;index" json:"status"`
	AdminNotes  *string             `gorm:"type:text" json:"admin_notes,omitempty"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
}

// TableName specifies the table name for Consultation
func (Consultation) TableName() string {
	return "consultations"
}

func (Consultation) Kind() Kind {
	return KindConsultation
}

// PreferredSlot combines the preferred date and time into a timestamp.
// ok is false when either part was not supplied.
func (c *Consultation) PreferredSlot() (slot time.Time, ok bool, err error) {
	if c.Details.PreferredDate == "" || c.Details.PreferredTime == "" {
		return time.Time{}, false, nil
	}
	slot, err = time.Parse("2006-01-02 15:04", c.Details.PreferredDate+" "+c.Details.PreferredTime)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse preferred slot: %w", err)
	}
	return slot, true, nil
}

// ConsultationInput is the public booking payload
type ConsultationInput struct {
	ClientInfo ClientInfo          `json:"client_info" validate:"required"`
	Details    ConsultationDetails `json:"details" validate:"required"`
}

func (in *ConsultationInput) Normalize() {
	trim(&in.ClientInfo.Name, &in.ClientInfo.Phone)
	in.ClientInfo.Email = normalizeEmail(in.ClientInfo.Email)

	d := &in.Details
	trim(&d.VisaType, &d.Country, &d.PreferredDate, &d.PreferredTime)
	d.Message = trimOptional(d.Message)
	if d.Channel == "" {
		d.Channel = ChannelInPerson
	}
}

// NewConsultation builds a pending consultation from a validated input
func NewConsultation(in ConsultationInput) *Consultation {
	return &Consultation{
		ClientInfo: in.ClientInfo,
		Details:    in.Details,
		Status:     ConsultationPending,
	}
}
