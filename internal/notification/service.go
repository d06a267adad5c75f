package notification

import (
	"context"
	"encoding/json"

	"github.com/floingsmoke/tigo/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db  db.Querier
	hub *Hub
}

func NewService(db db.Querier, hub *Hub) *Service {
	return &Service{db: db, hub: hub}
}

// Emit records a notification for a user. Callers treat a failure here as
// best-effort: the triggering operation logs it and succeeds regardless.
func (s *Service) Emit(ctx context.Context, userID, typ, title, message, link string) error {
	n := Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return err
	}

	if s.hub != nil {
		payload, _ := json.Marshal(n)
		s.hub.Publish(userID, payload)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, message, COALESCE(link, ''), read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT 50
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read=false
	`, userID).Scan(&count)
	return count, err
}

// MarkRead is scoped by both id and owner; marking someone else's
// notification (or a missing one) is a silent no-op.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET read=true WHERE user_id=$1
	`, userID)
	return err
}

// Delete follows the same id+owner scoping as MarkRead.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM notifications WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}
