package trip

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
	"github.com/jackc/pgx/v5/pgconn"
)

// Notifier is the post-commit hook used for request events. Failures are
// logged and swallowed; a lost notification never fails the request flow.
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

const tripCols = `t.id, t.user_id, t.departure_city, t.departure_lat, t.departure_lng,
	       t.arrival_city, t.arrival_lat, t.arrival_lng, t.date, t.time,
	       COALESCE(t.description,''), t.availability_type, t.capacity,
	       COALESCE(t.photo,''), t.status, t.created_at`

func (s *Service) CreateTrip(ctx context.Context, input Trip) (Trip, error) {
	if input.DepartureCity == "" || input.ArrivalCity == "" || input.Date == "" || input.Time == "" {
		return Trip{}, fmt.Errorf("%w: departure_city, arrival_city, date and time required", apperr.ErrInvalid)
	}
	input.ID = uuid.NewString()
	if input.AvailabilityType == "" {
		input.AvailabilityType = AvailabilityBoth
	}
	if input.Capacity == "" {
		input.Capacity = CapacityMedium
	}
	input.Status = "active"

	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, user_id, departure_city, departure_lat, departure_lng,
		                   arrival_city, arrival_lat, arrival_lng, date, time,
		                   description, availability_type, capacity, photo, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at
	`, input.ID, input.UserID, input.DepartureCity, input.DepartureLat, input.DepartureLng,
		input.ArrivalCity, input.ArrivalLat, input.ArrivalLng, input.Date, input.Time,
		input.Description, input.AvailabilityType, input.Capacity, nullable(input.Photo), input.Status)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Trip{}, err
	}
	return input, nil
}

// GetTrip returns a trip with its owner identity, plus the caller's own
// request state when a caller is known.
func (s *Service) GetTrip(ctx context.Context, id, callerID string) (TripDetail, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripCols+`, u.name, COALESCE(u.profile_photo,'')
		FROM trips t
		JOIN users u ON t.user_id = u.id
		WHERE t.id=$1
	`, id)
	trip, err := scanTripWithDriver(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TripDetail{}, fmt.Errorf("%w: trip", apperr.ErrNotFound)
		}
		return TripDetail{}, err
	}

	detail := TripDetail{Trip: trip}
	if callerID != "" {
		var status string
		err := s.db.QueryRow(ctx, `
			SELECT status FROM trip_requests WHERE trip_id=$1 AND requester_id=$2
		`, id, callerID).Scan(&status)
		switch {
		case err == nil:
			detail.HasRequested = true
			detail.RequestStatus = status
		case !errors.Is(err, pgx.ErrNoRows):
			return TripDetail{}, err
		}
	}
	return detail, nil
}

// ListTrips returns active trips matching the filter, soonest first.
func (s *Service) ListTrips(ctx context.Context, f Filter) ([]Trip, error) {
	query := `
		SELECT ` + tripCols + `, u.name, COALESCE(u.profile_photo,'')
		FROM trips t
		JOIN users u ON t.user_id = u.id
		WHERE t.status = 'active'`
	var args []any

	if f.Departure != "" {
		args = append(args, "%"+strings.ToLower(f.Departure)+"%")
		query += fmt.Sprintf(" AND LOWER(t.departure_city) LIKE $%d", len(args))
	}
	if f.Arrival != "" {
		args = append(args, "%"+strings.ToLower(f.Arrival)+"%")
		query += fmt.Sprintf(" AND LOWER(t.arrival_city) LIKE $%d", len(args))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		query += fmt.Sprintf(" AND t.date = $%d", len(args))
	}
	if f.Type != "" && f.Type != "all" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND (t.availability_type = $%d OR t.availability_type = 'both')", len(args))
	}
	if f.Capacity != "" {
		args = append(args, f.Capacity)
		query += fmt.Sprintf(" AND t.capacity = $%d", len(args))
	}

	query += " ORDER BY t.date ASC, t.time ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTripsWithDriver(rows)
}

// CalendarTrips returns active trips whose date falls in [start, end].
func (s *Service) CalendarTrips(ctx context.Context, start, end string) ([]Trip, error) {
	if start == "" {
		start = "2000-01-01"
	}
	if end == "" {
		end = "2100-12-31"
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+tripCols+`, u.name, COALESCE(u.profile_photo,'')
		FROM trips t
		JOIN users u ON t.user_id = u.id
		WHERE t.status = 'active' AND t.date BETWEEN $1 AND $2
		ORDER BY t.date ASC, t.time ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTripsWithDriver(rows)
}

func (s *Service) MyTrips(ctx context.Context, userID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripCols+`
		FROM trips t
		WHERE t.user_id=$1
		ORDER BY t.date DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func (s *Service) UpdateTrip(ctx context.Context, id, callerID string, patch Trip) (Trip, error) {
	if err := s.requireOwner(ctx, id, callerID); err != nil {
		return Trip{}, err
	}

	row := s.db.QueryRow(ctx, `
		SELECT `+tripCols+`
		FROM trips t WHERE t.id=$1
	`, id)
	trip, err := scanTrip(row)
	if err != nil {
		return Trip{}, err
	}

	if patch.DepartureCity != "" {
		trip.DepartureCity = patch.DepartureCity
	}
	if patch.ArrivalCity != "" {
		trip.ArrivalCity = patch.ArrivalCity
	}
	if patch.Date != "" {
		trip.Date = patch.Date
	}
	if patch.Time != "" {
		trip.Time = patch.Time
	}
	if patch.Description != "" {
		trip.Description = patch.Description
	}
	if patch.AvailabilityType != "" {
		trip.AvailabilityType = patch.AvailabilityType
	}
	if patch.Capacity != "" {
		trip.Capacity = patch.Capacity
	}
	if patch.Photo != "" {
		trip.Photo = patch.Photo
	}
	if patch.Status != "" {
		if patch.Status != "active" && patch.Status != "inactive" {
			return Trip{}, fmt.Errorf("%w: status must be active or inactive", apperr.ErrInvalid)
		}
		trip.Status = patch.Status
	}

	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET departure_city=$2, arrival_city=$3, date=$4, time=$5, description=$6,
		    availability_type=$7, capacity=$8, photo=$9, status=$10
		WHERE id=$1
	`, trip.ID, trip.DepartureCity, trip.ArrivalCity, trip.Date, trip.Time, trip.Description,
		trip.AvailabilityType, trip.Capacity, nullable(trip.Photo), trip.Status)
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (s *Service) DeleteTrip(ctx context.Context, id, callerID string) error {
	if err := s.requireOwner(ctx, id, callerID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id)
	return err
}

// SubmitRequest creates a pending request against a trip. The duplicate guard
// is the unique constraint on (trip_id, requester_id): concurrent submissions
// lose the race at the store, not at a read.
func (s *Service) SubmitRequest(ctx context.Context, tripID, requesterID, message string) (Request, error) {
	var ownerID, departure, arrival string
	err := s.db.QueryRow(ctx, `
		SELECT user_id, departure_city, arrival_city FROM trips WHERE id=$1
	`, tripID).Scan(&ownerID, &departure, &arrival)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, fmt.Errorf("%w: trip", apperr.ErrNotFound)
		}
		return Request{}, err
	}
	if ownerID == requesterID {
		return Request{}, fmt.Errorf("%w: cannot request your own trip", apperr.ErrInvalid)
	}

	req := Request{
		ID:          uuid.NewString(),
		TripID:      tripID,
		RequesterID: requesterID,
		Message:     strings.TrimSpace(message),
		Status:      StatusPending,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO trip_requests (id, trip_id, requester_id, message)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, req.ID, req.TripID, req.RequesterID, nullable(req.Message))
	if err := row.Scan(&req.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Request{}, fmt.Errorf("%w: you have already requested this trip", apperr.ErrConflict)
		}
		return Request{}, err
	}

	if err := s.db.QueryRow(ctx, `SELECT name FROM users WHERE id=$1`, requesterID).Scan(&req.RequesterName); err != nil {
		log.Printf("lookup requester name: %v", err)
	} else if err := s.notify.Emit(ctx, ownerID, notification.TypeRequestReceived,
		"New trip request",
		fmt.Sprintf("%s wants to join your trip %s → %s", req.RequesterName, departure, arrival),
		"/trips/"+tripID); err != nil {
		log.Printf("emit request_received notification: %v", err)
	}

	return req, nil
}

// RequestsForTrip lists a trip's requests for its owner, newest first.
func (s *Service) RequestsForTrip(ctx context.Context, tripID, callerID string) ([]Request, error) {
	if err := s.requireOwner(ctx, tripID, callerID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT tr.id, tr.trip_id, tr.requester_id, COALESCE(tr.message,''), tr.status, tr.created_at,
		       u.name, COALESCE(u.profile_photo,'')
		FROM trip_requests tr
		JOIN users u ON tr.requester_id = u.id
		WHERE tr.trip_id=$1
		ORDER BY tr.created_at DESC
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.TripID, &r.RequesterID, &r.Message, &r.Status, &r.CreatedAt,
			&r.RequesterName, &r.RequesterPhoto); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// RespondToRequest resolves a pending request. The status transition is a
// compare-and-set on status='pending', so two concurrent responses cannot
// both win and at most one conversation is ever created per request.
func (s *Service) RespondToRequest(ctx context.Context, requestID, callerID, decision string) error {
	if decision != StatusAccepted && decision != StatusRejected {
		return fmt.Errorf("%w: decision must be accepted or rejected", apperr.ErrInvalid)
	}

	var requesterID, tripID, ownerID, departure, arrival string
	err := s.db.QueryRow(ctx, `
		SELECT tr.requester_id, tr.trip_id, t.user_id, t.departure_city, t.arrival_city
		FROM trip_requests tr
		JOIN trips t ON tr.trip_id = t.id
		WHERE tr.id=$1
	`, requestID).Scan(&requesterID, &tripID, &ownerID, &departure, &arrival)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: request", apperr.ErrNotFound)
		}
		return err
	}
	if ownerID != callerID {
		return apperr.ErrForbidden
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE trip_requests SET status=$2 WHERE id=$1 AND status='pending'
	`, requestID, decision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request already resolved", apperr.ErrConflict)
	}

	if decision == StatusAccepted {
		_, err := s.db.Exec(ctx, `
			INSERT INTO conversations (id, trip_request_id, user1_id, user2_id)
			VALUES ($1,$2,$3,$4)
		`, uuid.NewString(), requestID, callerID, requesterID)
		if err != nil {
			return err
		}
	}

	var driverName string
	if err := s.db.QueryRow(ctx, `SELECT name FROM users WHERE id=$1`, callerID).Scan(&driverName); err != nil {
		log.Printf("lookup driver name: %v", err)
		return nil
	}

	typ := notification.TypeRequestRejected
	title := "Request rejected"
	body := fmt.Sprintf("%s declined your request for the trip %s → %s", driverName, departure, arrival)
	if decision == StatusAccepted {
		typ = notification.TypeRequestAccepted
		title = "Request accepted"
		body = fmt.Sprintf("%s accepted your request for the trip %s → %s", driverName, departure, arrival)
	}
	if err := s.notify.Emit(ctx, requesterID, typ, title, body, "/messages"); err != nil {
		log.Printf("emit %s notification: %v", typ, err)
	}

	return nil
}

// requireOwner answers Forbidden for both a foreign and an absent trip, so a
// caller cannot probe for existence.
func (s *Service) requireOwner(ctx context.Context, tripID, callerID string) error {
	var ownerID string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM trips WHERE id=$1`, tripID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrForbidden
		}
		return err
	}
	if ownerID != callerID {
		return apperr.ErrForbidden
	}
	return nil
}

func scanTrip(row pgx.Row) (Trip, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.UserID, &t.DepartureCity, &t.DepartureLat, &t.DepartureLng,
		&t.ArrivalCity, &t.ArrivalLat, &t.ArrivalLng, &t.Date, &t.Time,
		&t.Description, &t.AvailabilityType, &t.Capacity, &t.Photo, &t.Status, &t.CreatedAt)
	return t, err
}

func scanTripWithDriver(row pgx.Row) (Trip, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.UserID, &t.DepartureCity, &t.DepartureLat, &t.DepartureLng,
		&t.ArrivalCity, &t.ArrivalLat, &t.ArrivalLng, &t.Date, &t.Time,
		&t.Description, &t.AvailabilityType, &t.Capacity, &t.Photo, &t.Status, &t.CreatedAt,
		&t.DriverName, &t.DriverPhoto)
	return t, err
}

func collectTripsWithDriver(rows pgx.Rows) ([]Trip, error) {
	var trips []Trip
	for rows.Next() {
		trip, err := scanTripWithDriver(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
