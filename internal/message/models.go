package message

import "time"

// ConversationSummary is one row of the inbox listing: the conversation plus
// the other participant, the originating trip, and last-message metadata.
type ConversationSummary struct {
	ID             string     `json:"id"`
	TripRequestID  string     `json:"trip_request_id"`
	CreatedAt      time.Time  `json:"created_at"`
	OtherUserID    string     `json:"other_user_id"`
	OtherUserName  string     `json:"other_user_name"`
	OtherUserPhoto string     `json:"other_user_photo,omitempty"`
	RequestStatus  string     `json:"request_status"`
	DepartureCity  string     `json:"departure_city"`
	ArrivalCity    string     `json:"arrival_city"`
	Date           string     `json:"date"`
	LastMessage    string     `json:"last_message,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadCount    int        `json:"unread_count"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`

	SenderName  string `json:"sender_name,omitempty"`
	SenderPhoto string `json:"sender_photo,omitempty"`
}

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Conversation is the opened thread: full history plus the other participant.
type Conversation struct {
	ID       string      `json:"id"`
	Other    Participant `json:"other_user"`
	Messages []Message   `json:"messages"`
}
