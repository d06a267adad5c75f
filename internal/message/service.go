package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/floingsmoke/tigo/internal/db"
	"github.com/floingsmoke/tigo/internal/notification"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const previewLen = 50

type Notifier interface {
	Emit(ctx context.Context, userID, typ, title, message, link string) error
}

type Service struct {
	db     db.Querier
	notify Notifier
}

func NewService(db db.Querier, notify Notifier) *Service {
	return &Service{db: db, notify: notify}
}

// ListConversations returns the caller's inbox, most recently active first.
// A conversation with no messages yet sorts by its creation time.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.trip_request_id, c.created_at,
		       other.id, other.name, COALESCE(other.profile_photo,''),
		       tr.status, t.departure_city, t.arrival_city, t.date,
		       COALESCE(lm.content,''), lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read = false)
		FROM conversations c
		JOIN trip_requests tr ON c.trip_request_id = tr.id
		JOIN trips t ON tr.trip_id = t.id
		JOIN users other ON other.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN LATERAL (
			SELECT content, created_at FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var cs ConversationSummary
		if err := rows.Scan(&cs.ID, &cs.TripRequestID, &cs.CreatedAt,
			&cs.OtherUserID, &cs.OtherUserName, &cs.OtherUserPhoto,
			&cs.RequestStatus, &cs.DepartureCity, &cs.ArrivalCity, &cs.Date,
			&cs.LastMessage, &cs.LastMessageAt, &cs.UnreadCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

// OpenConversation returns the thread history oldest-first and marks every
// message the viewer received as read.
func (s *Service) OpenConversation(ctx context.Context, conversationID, userID string) (Conversation, error) {
	otherID, err := s.otherParticipant(ctx, conversationID, userID)
	if err != nil {
		return Conversation{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE messages SET read=true
		WHERE conversation_id=$1 AND sender_id<>$2 AND read=false
	`, conversationID, userID)
	if err != nil {
		return Conversation{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created_at,
		       u.name, COALESCE(u.profile_photo,'')
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id=$1
		ORDER BY m.created_at ASC
	`, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	defer rows.Close()

	conv := Conversation{ID: conversationID, Messages: []Message{}}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read, &m.CreatedAt,
			&m.SenderName, &m.SenderPhoto); err != nil {
			return Conversation{}, err
		}
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return Conversation{}, err
	}

	conv.Other.ID = otherID
	err = s.db.QueryRow(ctx, `
		SELECT name, COALESCE(profile_photo,'') FROM users WHERE id=$1
	`, otherID).Scan(&conv.Other.Name, &conv.Other.Photo)
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// SendMessage appends to the thread and pings the other participant.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: content required", apperr.ErrInvalid)
	}

	otherID, err := s.otherParticipant(ctx, conversationID, senderID)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.Content)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		return Message{}, err
	}

	if err := s.db.QueryRow(ctx, `SELECT name FROM users WHERE id=$1`, senderID).Scan(&msg.SenderName); err != nil {
		log.Printf("lookup sender name: %v", err)
	} else if err := s.notify.Emit(ctx, otherID, notification.TypeNewMessage,
		"New message", msg.SenderName+": "+preview(content), "/messages"); err != nil {
		log.Printf("emit new_message notification: %v", err)
	}

	return msg, nil
}

// UnreadCount tallies unread messages addressed to the user across all of
// their conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE (c.user1_id=$1 OR c.user2_id=$1) AND m.sender_id <> $1 AND m.read = false
	`, userID).Scan(&count)
	return count, err
}

// otherParticipant authorizes the caller and resolves the peer. A missing
// conversation answers Forbidden the same as a foreign one.
func (s *Service) otherParticipant(ctx context.Context, conversationID, userID string) (string, error) {
	var user1, user2 string
	err := s.db.QueryRow(ctx, `
		SELECT user1_id, user2_id FROM conversations WHERE id=$1
	`, conversationID).Scan(&user1, &user2)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.ErrForbidden
		}
		return "", err
	}
	switch userID {
	case user1:
		return user2, nil
	case user2:
		return user1, nil
	}
	return "", apperr.ErrForbidden
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "..."
}
