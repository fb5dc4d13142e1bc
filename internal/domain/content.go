// Package domain holds the core types passed between the detection,
// dispatch and rotation components.
package domain

import "time"

// Orientation describes the aspect class of a content item. It drives
// which downstream platform set an item is routed to.
type Orientation string

const (
	// OrientationLandscape routes to the desktop platform set.
	OrientationLandscape Orientation = "landscape"
	// OrientationPortrait routes to the mobile platform set.
	OrientationPortrait Orientation = "portrait"
)

// ContentItem is one piece of newly published upstream media. Identity is
// (SourceID, ExternalID); items are immutable once detected.
type ContentItem struct {
	SourceID     string      `json:"source_id"`
	ExternalID   string      `json:"external_id"`
	Title        string      `json:"title"`
	URL          string      `json:"url"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	PublishedAt  time.Time   `json:"published_at"`
	Orientation  Orientation `json:"orientation"`
}

// Key returns the identity key of the item, used for deduplication.
func (c ContentItem) Key() string {
	return c.SourceID + ":" + c.ExternalID
}

// DeliveryRecord is created once an item has been posted to at least one
// platform. Its existence is the sole source of deduplication truth; it is
// never updated or deleted.
type DeliveryRecord struct {
	ExternalID         string    `json:"external_id"`
	SourceID           string    `json:"source_id"`
	Title              string    `json:"title"`
	URL                string    `json:"url"`
	DeliveredAt        time.Time `json:"delivered_at"`
	SucceededPlatforms []string  `json:"succeeded_platforms"`
}
