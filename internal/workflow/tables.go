package workflow

import "visadesk/internal/domain"

// Application: reviewers must move a case into review before disposing it.
var Application = New(string(domain.KindApplication), domain.ApplicationPending,
	map[domain.ApplicationStatus][]domain.ApplicationStatus{
		domain.ApplicationPending:     {domain.ApplicationUnderReview},
		domain.ApplicationUnderReview: {domain.ApplicationApproved, domain.ApplicationRejected},
		domain.ApplicationApproved:    {domain.ApplicationCompleted},
		domain.ApplicationRejected:    nil,
		domain.ApplicationCompleted:   nil,
	})

// Consultation: confirming schedules the meeting.
var Consultation = New(string(domain.KindConsultation), domain.ConsultationPending,
	map[domain.ConsultationStatus][]domain.ConsultationStatus{
		domain.ConsultationPending:   {domain.ConsultationConfirmed, domain.ConsultationCancelled},
		domain.ConsultationConfirmed: {domain.ConsultationCompleted, domain.ConsultationCancelled},
		domain.ConsultationCompleted: nil,
		domain.ConsultationCancelled: nil,
	})

// Inquiry: there is no reopen; a follow-up is a new inquiry.
var Inquiry = New(string(domain.KindInquiry), domain.InquiryNew,
	map[domain.InquiryStatus][]domain.InquiryStatus{
		domain.InquiryNew:     {domain.InquiryRead, domain.InquiryClosed},
		domain.InquiryRead:    {domain.InquiryReplied, domain.InquiryClosed},
		domain.InquiryReplied: {domain.InquiryClosed},
		domain.InquiryClosed:  nil,
	})

// Moderation governs testimonials and blog comments. An approval can be
// withdrawn; a rejection is permanent.
var Moderation = New("moderation", domain.ModerationPending,
	map[domain.ModerationStatus][]domain.ModerationStatus{
		domain.ModerationPending:  {domain.ModerationApproved, domain.ModerationRejected},
		domain.ModerationApproved: {domain.ModerationRejected},
		domain.ModerationRejected: nil,
	})
