package trip

import "time"

// Availability types and capacity classes a trip can advertise.
const (
	AvailabilityDelivery = "delivery"
	AvailabilityPickup   = "pickup"
	AvailabilityBoth     = "both"

	CapacitySmall  = "small"
	CapacityMedium = "medium"
	CapacityLarge  = "large"
)

// Request lifecycle states.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Trip struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	DepartureCity    string    `json:"departure_city"`
	DepartureLat     *float64  `json:"departure_lat,omitempty"`
	DepartureLng     *float64  `json:"departure_lng,omitempty"`
	ArrivalCity      string    `json:"arrival_city"`
	ArrivalLat       *float64  `json:"arrival_lat,omitempty"`
	ArrivalLng       *float64  `json:"arrival_lng,omitempty"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Description      string    `json:"description,omitempty"`
	AvailabilityType string    `json:"availability_type"`
	Capacity         string    `json:"capacity"`
	Photo            string    `json:"photo,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`

	// Owner identity, populated on reads that join users.
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhoto string `json:"driver_photo,omitempty"`
}

// TripDetail is a single trip enriched with the caller's request state.
type TripDetail struct {
	Trip          Trip   `json:"trip"`
	HasRequested  bool   `json:"has_requested"`
	RequestStatus string `json:"request_status,omitempty"`
}

type Request struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id"`
	RequesterID string    `json:"requester_id"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	RequesterName  string `json:"requester_name,omitempty"`
	RequesterPhoto string `json:"requester_photo,omitempty"`
}

// Filter narrows the public trip listing. Zero values match everything.
type Filter struct {
	Departure string
	Arrival   string
	Date      string
	Type      string
	Capacity  string
}
