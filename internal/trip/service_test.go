package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

var errQuery = errors.New("query error")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

type emitted struct {
	userID, typ, title, message, link string
}

type fakeNotifier struct {
	emits []emitted
	err   error
}

func (f *fakeNotifier) Emit(_ context.Context, userID, typ, title, message, link string) error {
	f.emits = append(f.emits, emitted{userID, typ, title, message, link})
	return f.err
}

func tripColumns() []string {
	return []string{"id", "user_id", "departure_city", "departure_lat", "departure_lng",
		"arrival_city", "arrival_lat", "arrival_lng", "date", "time",
		"description", "availability_type", "capacity", "photo", "status", "created_at"}
}

func tripRow(id, userID string) []any {
	return []any{id, userID, "Paris", nil, nil, "Lyon", nil, nil,
		"2026-09-15", "08:30", "", "both", "medium", "", "active", time.Now()}
}

func TestCreateTripDefaults(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Paris", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"Lyon", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"2026-09-15", "08:30", "", "both", "medium", pgxmock.AnyArg(), "active").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock, &fakeNotifier{})
	trip, err := svc.CreateTrip(context.Background(), Trip{
		UserID:        "user-1",
		DepartureCity: "Paris",
		ArrivalCity:   "Lyon",
		Date:          "2026-09-15",
		Time:          "08:30",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trip.AvailabilityType != AvailabilityBoth || trip.Capacity != CapacityMedium || trip.Status != "active" {
		t.Fatalf("defaults not applied: %+v", trip)
	}
	if trip.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateTripMissingFields(t *testing.T) {
	svc := NewService(newMock(t), &fakeNotifier{})
	_, err := svc.CreateTrip(context.Background(), Trip{DepartureCity: "Paris"})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestGetTripWithRequestState(t *testing.T) {
	mock := newMock(t)

	cols := append(tripColumns(), "name", "profile_photo")
	row := append(tripRow("trip-1", "owner-1"), "Alice", "")
	mock.ExpectQuery(`FROM trips t\s+JOIN users u`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(row...))
	mock.ExpectQuery(`SELECT status FROM trip_requests WHERE trip_id=\$1 AND requester_id=\$2`).
		WithArgs("trip-1", "user-2").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("pending"))

	svc := NewService(mock, &fakeNotifier{})
	detail, err := svc.GetTrip(context.Background(), "trip-1", "user-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !detail.HasRequested || detail.RequestStatus != StatusPending {
		t.Fatalf("expected pending request state, got %+v", detail)
	}
	if detail.Trip.DriverName != "Alice" {
		t.Fatalf("expected driver name, got %q", detail.Trip.DriverName)
	}
}

func TestGetTripAnonymousSkipsRequestLookup(t *testing.T) {
	mock := newMock(t)

	cols := append(tripColumns(), "name", "profile_photo")
	row := append(tripRow("trip-1", "owner-1"), "Alice", "")
	mock.ExpectQuery(`FROM trips t\s+JOIN users u`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(row...))

	svc := NewService(mock, &fakeNotifier{})
	detail, err := svc.GetTrip(context.Background(), "trip-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.HasRequested {
		t.Fatalf("anonymous caller cannot have a request")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTripNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trips t\s+JOIN users u`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.GetTrip(context.Background(), "ghost", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTripsFilters(t *testing.T) {
	mock := newMock(t)

	cols := append(tripColumns(), "name", "profile_photo")
	row := append(tripRow("trip-1", "owner-1"), "Alice", "")
	mock.ExpectQuery(`LOWER\(t.departure_city\) LIKE \$1`).
		WithArgs("%paris%", "delivery").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(row...))

	svc := NewService(mock, &fakeNotifier{})
	trips, err := svc.ListTrips(context.Background(), Filter{Departure: "Paris", Type: AvailabilityDelivery})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != "trip-1" {
		t.Fatalf("unexpected trips: %+v", trips)
	}
}

func TestListTripsTypeAllIgnored(t *testing.T) {
	mock := newMock(t)

	cols := append(tripColumns(), "name", "profile_photo")
	mock.ExpectQuery(`WHERE t.status = 'active'\s+ORDER BY`).
		WillReturnRows(pgxmock.NewRows(cols))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.ListTrips(context.Background(), Filter{Type: "all"}); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestCalendarTripsDefaultsRange(t *testing.T) {
	mock := newMock(t)

	cols := append(tripColumns(), "name", "profile_photo")
	mock.ExpectQuery(`t.date BETWEEN \$1 AND \$2`).
		WithArgs("2000-01-01", "2100-12-31").
		WillReturnRows(pgxmock.NewRows(cols))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.CalendarTrips(context.Background(), "", ""); err != nil {
		t.Fatalf("calendar: %v", err)
	}
}

func TestMyTrips(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trips t\s+WHERE t.user_id=\$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(tripColumns()).AddRow(tripRow("trip-1", "user-1")...))

	svc := NewService(mock, &fakeNotifier{})
	trips, err := svc.MyTrips(context.Background(), "user-1")
	if err != nil || len(trips) != 1 {
		t.Fatalf("my trips: %v %+v", err, trips)
	}
}

func TestUpdateTripForbiddenForNonOwner(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.UpdateTrip(context.Background(), "trip-1", "intruder", Trip{Date: "2026-10-01"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateTripMissingTripForbidden(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.UpdateTrip(context.Background(), "ghost", "user-1", Trip{Date: "2026-10-01"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for missing trip, got %v", err)
	}
}

func TestUpdateTripPatchesOnlyProvidedFields(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))
	mock.ExpectQuery(`FROM trips t WHERE t.id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows(tripColumns()).AddRow(tripRow("trip-1", "owner-1")...))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs("trip-1", "Paris", "Marseille", "2026-09-15", "08:30", "",
			"both", "medium", pgxmock.AnyArg(), "active").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock, &fakeNotifier{})
	trip, err := svc.UpdateTrip(context.Background(), "trip-1", "owner-1", Trip{ArrivalCity: "Marseille"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if trip.ArrivalCity != "Marseille" || trip.DepartureCity != "Paris" {
		t.Fatalf("patch semantics broken: %+v", trip)
	}
}

func TestUpdateTripInvalidStatus(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))
	mock.ExpectQuery(`FROM trips t WHERE t.id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows(tripColumns()).AddRow(tripRow("trip-1", "owner-1")...))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.UpdateTrip(context.Background(), "trip-1", "owner-1", Trip{Status: "archived"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestDeleteTrip(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))
	mock.ExpectExec(`DELETE FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	svc := NewService(mock, &fakeNotifier{})
	if err := svc.DeleteTrip(context.Background(), "trip-1", "owner-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestSubmitRequestNotifiesOwner(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, departure_city, arrival_city FROM trips`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "departure_city", "arrival_city"}).
			AddRow("owner-1", "Paris", "Lyon"))
	mock.ExpectQuery(`INSERT INTO trip_requests`).
		WithArgs(pgxmock.AnyArg(), "trip-1", "user-2", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`SELECT name FROM users WHERE id=\$1`).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Marie"))

	notify := &fakeNotifier{}
	svc := NewService(mock, notify)
	req, err := svc.SubmitRequest(context.Background(), "trip-1", "user-2", "  room for a box?  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != StatusPending || req.Message != "room for a box?" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(notify.emits) != 1 {
		t.Fatalf("expected one notification, got %d", len(notify.emits))
	}
	e := notify.emits[0]
	if e.userID != "owner-1" || e.typ != "request_received" || e.link != "/trips/trip-1" {
		t.Fatalf("unexpected notification: %+v", e)
	}
	if e.message != "Marie wants to join your trip Paris → Lyon" {
		t.Fatalf("unexpected body: %q", e.message)
	}
}

func TestSubmitRequestOwnTrip(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, departure_city, arrival_city FROM trips`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "departure_city", "arrival_city"}).
			AddRow("owner-1", "Paris", "Lyon"))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.SubmitRequest(context.Background(), "trip-1", "owner-1", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestSubmitRequestMissingTrip(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, departure_city, arrival_city FROM trips`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.SubmitRequest(context.Background(), "ghost", "user-2", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitRequestDuplicateConflict(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, departure_city, arrival_city FROM trips`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "departure_city", "arrival_city"}).
			AddRow("owner-1", "Paris", "Lyon"))
	mock.ExpectQuery(`INSERT INTO trip_requests`).
		WithArgs(pgxmock.AnyArg(), "trip-1", "user-2", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	notify := &fakeNotifier{}
	svc := NewService(mock, notify)
	if _, err := svc.SubmitRequest(context.Background(), "trip-1", "user-2", "again"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(notify.emits) != 0 {
		t.Fatalf("duplicate must not notify")
	}
}

func TestSubmitRequestNotifyFailureIgnored(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, departure_city, arrival_city FROM trips`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "departure_city", "arrival_city"}).
			AddRow("owner-1", "Paris", "Lyon"))
	mock.ExpectQuery(`INSERT INTO trip_requests`).
		WithArgs(pgxmock.AnyArg(), "trip-1", "user-2", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`SELECT name FROM users WHERE id=\$1`).
		WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Marie"))

	svc := NewService(mock, &fakeNotifier{err: errQuery})
	if _, err := svc.SubmitRequest(context.Background(), "trip-1", "user-2", "hi"); err != nil {
		t.Fatalf("notification failure must not fail the request: %v", err)
	}
}

func TestRequestsForTripOwnerOnly(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))

	svc := NewService(mock, &fakeNotifier{})
	if _, err := svc.RequestsForTrip(context.Background(), "trip-1", "user-2"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRequestsForTrip(t *testing.T) {
	mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT user_id FROM trips WHERE id=\$1`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("owner-1"))
	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN users u`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "requester_id", "message", "status", "created_at", "name", "profile_photo"}).
			AddRow("req-2", "trip-1", "user-3", "", StatusPending, now, "Thomas", "").
			AddRow("req-1", "trip-1", "user-2", "hello", StatusAccepted, now.Add(-time.Hour), "Marie", ""))

	svc := NewService(mock, &fakeNotifier{})
	requests, err := svc.RequestsForTrip(context.Background(), "trip-1", "owner-1")
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	if len(requests) != 2 || requests[0].ID != "req-2" || requests[1].RequesterName != "Marie" {
		t.Fatalf("unexpected requests: %+v", requests)
	}
}

func TestRespondAcceptCreatesConversation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN trips t`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"requester_id", "trip_id", "user_id", "departure_city", "arrival_city"}).
			AddRow("user-2", "trip-1", "owner-1", "Paris", "Lyon"))
	mock.ExpectExec(`UPDATE trip_requests SET status=\$2 WHERE id=\$1 AND status='pending'`).
		WithArgs("req-1", StatusAccepted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO conversations`).
		WithArgs(pgxmock.AnyArg(), "req-1", "owner-1", "user-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT name FROM users WHERE id=\$1`).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Alice"))

	notify := &fakeNotifier{}
	svc := NewService(mock, notify)
	if err := svc.RespondToRequest(context.Background(), "req-1", "owner-1", StatusAccepted); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(notify.emits) != 1 {
		t.Fatalf("expected one notification")
	}
	e := notify.emits[0]
	if e.userID != "user-2" || e.typ != "request_accepted" || e.link != "/messages" {
		t.Fatalf("unexpected notification: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRespondRejectSkipsConversation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN trips t`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"requester_id", "trip_id", "user_id", "departure_city", "arrival_city"}).
			AddRow("user-2", "trip-1", "owner-1", "Paris", "Lyon"))
	mock.ExpectExec(`UPDATE trip_requests SET status=\$2 WHERE id=\$1 AND status='pending'`).
		WithArgs("req-1", StatusRejected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT name FROM users WHERE id=\$1`).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Alice"))

	notify := &fakeNotifier{}
	svc := NewService(mock, notify)
	if err := svc.RespondToRequest(context.Background(), "req-1", "owner-1", StatusRejected); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if notify.emits[0].typ != "request_rejected" {
		t.Fatalf("unexpected type: %s", notify.emits[0].typ)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("reject must not create a conversation: %v", err)
	}
}

func TestRespondAlreadyResolvedConflict(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN trips t`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"requester_id", "trip_id", "user_id", "departure_city", "arrival_city"}).
			AddRow("user-2", "trip-1", "owner-1", "Paris", "Lyon"))
	mock.ExpectExec(`UPDATE trip_requests SET status=\$2 WHERE id=\$1 AND status='pending'`).
		WithArgs("req-1", StatusAccepted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	notify := &fakeNotifier{}
	svc := NewService(mock, notify)
	if err := svc.RespondToRequest(context.Background(), "req-1", "owner-1", StatusAccepted); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(notify.emits) != 0 {
		t.Fatalf("losing respond must not notify")
	}
}

func TestRespondNonOwnerForbidden(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN trips t`).
		WithArgs("req-1").
		WillReturnRows(pgxmock.NewRows([]string{"requester_id", "trip_id", "user_id", "departure_city", "arrival_city"}).
			AddRow("user-2", "trip-1", "owner-1", "Paris", "Lyon"))

	svc := NewService(mock, &fakeNotifier{})
	if err := svc.RespondToRequest(context.Background(), "req-1", "user-2", StatusAccepted); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRespondInvalidDecision(t *testing.T) {
	svc := NewService(newMock(t), &fakeNotifier{})
	if err := svc.RespondToRequest(context.Background(), "req-1", "owner-1", "maybe"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestRespondMissingRequest(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM trip_requests tr\s+JOIN trips t`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock, &fakeNotifier{})
	if err := svc.RespondToRequest(context.Background(), "ghost", "owner-1", StatusRejected); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
