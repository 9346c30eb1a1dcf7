package models

import "time"

// ContentType represents the kind of content a chat message carries
type ContentType string

const (
	// ContentText is a plain text message
	ContentText ContentType = "text"

	// ContentImage is an image message
	ContentImage ContentType = "image"

	// ContentVideo is a video message
	ContentVideo ContentType = "video"

	// ContentAudio is a voice note or audio file
	ContentAudio ContentType = "audio"

	// ContentDocument is a document attachment
	ContentDocument ContentType = "document"
)

// String returns string representation of ContentType
func (c ContentType) String() string {
	return string(c)
}

// IsMedia reports whether the content type carries a media payload
func (c ContentType) IsMedia() bool {
	switch c {
	case ContentImage, ContentVideo, ContentAudio, ContentDocument:
		return true
	}
	return false
}

// ChatMessage represents a single message fetched from the WhatsApp provider.
// This subsystem only reads messages; it never writes them back.
type ChatMessage struct {
	ID          string      `json:"id"`
	Body        string      `json:"body"`
	SenderID    string      `json:"sender_id"`
	SenderName  string      `json:"sender_name,omitempty"`
	Timestamp   time.Time   `json:"timestamp"` // UTC
	ContentType ContentType `json:"content_type"`
	IsFromSelf  bool        `json:"is_from_self"`
}

// GroupInfo represents a group entry from the provider's group directory
type GroupInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participant_count"`
}

// TimeRange represents an inclusive-start, exclusive-end UTC instant range
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
