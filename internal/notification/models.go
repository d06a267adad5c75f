package notification

import "time"

// Notification types emitted by the trip and message services.
const (
	TypeNewMessage      = "new_message"
	TypeRequestReceived = "request_received"
	TypeRequestAccepted = "request_accepted"
	TypeRequestRejected = "request_rejected"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
