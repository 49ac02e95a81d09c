package domain

// ApplicationStatus is the lifecycle state of a visa application
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationUnderReview ApplicationStatus = "under-review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationCompleted   ApplicationStatus = "completed"
)

// ApplicationStatuses lists every application status in lifecycle order
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending, ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationCompleted,
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationCompleted:
		return true
	}
	return false
}

// ConsultationStatus is the lifecycle state of a consultation booking
type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "pending"
	ConsultationConfirmed ConsultationStatus = "confirmed"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

var ConsultationStatuses = []ConsultationStatus{
	ConsultationPending, ConsultationConfirmed, ConsultationCompleted, ConsultationCancelled,
}

func (s ConsultationStatus) IsValid() bool {
	switch s {
	case ConsultationPending, ConsultationConfirmed, ConsultationCompleted, ConsultationCancelled:
		return true
	}
	return false
}

// InquiryStatus is the lifecycle state of a contact inquiry
type InquiryStatus string

const (
	InquiryNew     InquiryStatus = "new"
	InquiryRead    InquiryStatus = "read"
	InquiryReplied InquiryStatus = "replied"
	InquiryClosed  InquiryStatus = "closed"
)

var InquiryStatuses = []InquiryStatus{InquiryNew, InquiryRead, InquiryReplied, InquiryClosed}

func (s InquiryStatus) IsValid() bool {
	switch s {
	case InquiryNew, InquiryRead, InquiryReplied, InquiryClosed:
		return true
	}
	return false
}

// ModerationStatus tracks user-submitted content through the moderation gate
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

var ModerationStatuses = []ModerationStatus{ModerationPending, ModerationApproved, ModerationRejected}

func (s ModerationStatus) IsValid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// ConsultationChannel is how a consultation is held
type ConsultationChannel string

const (
	ChannelInPerson ConsultationChannel = "in-person"
	ChannelOnline   ConsultationChannel = "online"
	ChannelPhone    ConsultationChannel = "phone"
)

func (c ConsultationChannel) IsValid() bool {
	switch c {
	case ChannelInPerson, ChannelOnline, ChannelPhone:
		return true
	}
	return false
}

// BlogCategory is the closed set of blog categories
type BlogCategory string

const (
	CategoryVisaGuides      BlogCategory = "visa-guides"
	CategoryImmigrationNews BlogCategory = "immigration-news"
	CategoryTravelTips      BlogCategory = "travel-tips"
	CategorySuccessStories  BlogCategory = "success-stories"
	CategoryStudyAbroad     BlogCategory = "study-abroad"
	CategoryWorkPermits     BlogCategory = "work-permits"
	CategoryGeneral         BlogCategory = "general"
)

var BlogCategories = []BlogCategory{
	CategoryVisaGuides, CategoryImmigrationNews, CategoryTravelTips, CategorySuccessStories,
	CategoryStudyAbroad, CategoryWorkPermits, CategoryGeneral,
}

func (c BlogCategory) IsValid() bool {
	for _, known := range BlogCategories {
		if c == known {
			return true
		}
	}
	return false
}
