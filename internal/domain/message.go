package domain

import "time"

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentType represents the kind of payload a message carries
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// Message represents one entry in a session transcript. Messages are
// immutable once appended; rendering order is append order.
type Message struct {
	Role      MessageRole `json:"role"`
	Type      ContentType `json:"type"`
	Content   string      `json:"content,omitempty"`
	FileID    string      `json:"file_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TextMessage builds a text message for the given role
func TextMessage(role MessageRole, content string) Message {
	return Message{
		Role:      role,
		Type:      ContentText,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// ImageMessage builds an assistant message referencing a generated image file
func ImageMessage(fileID string) Message {
	return Message{
		Role:      RoleAssistant,
		Type:      ContentImage,
		FileID:    fileID,
		CreatedAt: time.Now(),
	}
}
