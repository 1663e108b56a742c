package domain

import "time"

// TrackingIDBytes is the entropy of a tracking id. Ids are hex encoded, so
// the string form is twice as long.
const TrackingIDBytes = 16

// TrackingEventType enumerates the engagement events a tracking record can
// receive.
type TrackingEventType string

const (
	EventOpen  TrackingEventType = "open"
	EventClick TrackingEventType = "click"
)

// TrackingRecord is one issued tracking identifier, tied to a single
// registration/send event for a contact.
type TrackingRecord struct {
	TrackingID   string     `json:"trackingId"`
	ContactID    string     `json:"contactId"`
	CampaignName string     `json:"campaignName,omitempty"`
	SentAt       time.Time  `json:"sentAt"`
	OpenedAt     *time.Time `json:"openedAt"`
	ClickedAt    *time.Time `json:"clickedAt"`
}
