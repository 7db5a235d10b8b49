package models

import "time"

// Location is a raw lat/lng pair as sent by clients. Coordinates are not
// validated beyond decoding; distance computation tolerates garbage.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type PatientStatus string

const (
	PatientAvailable      PatientStatus = "available"
	PatientRequesting     PatientStatus = "requesting"
	PatientDriverAssigned PatientStatus = "driver_assigned"
	PatientArrived        PatientStatus = "ambulance_arrived"
)

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverEnRoute   DriverStatus = "en_route"
	DriverArrived   DriverStatus = "arrived"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestArrived  RequestStatus = "arrived"
)

type Patient struct {
	ID              string        `json:"patient_id"`
	Location        *Location     `json:"location"`
	ActiveRequestID string        `json:"active_request_id,omitempty"`
	Status          PatientStatus `json:"status"`
}

type Driver struct {
	ID               string       `json:"driver_id"`
	Location         *Location    `json:"location"`
	Status           DriverStatus `json:"status"`
	CurrentRequestID string       `json:"current_request_id,omitempty"`
}

type EmergencyRequest struct {
	ID            string        `json:"request_id"`
	PatientID     string        `json:"patient_id"`
	DriverID      string        `json:"driver_id,omitempty"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	Location      *Location     `json:"location"`
	EmergencyType string        `json:"emergency_type"`

	// PaymentHoldID tracks an uncaptured billing hold; empty when billing
	// is disabled.
	PaymentHoldID string `json:"-"`
}

// ActorLocationEvent is the Kafka record published on location updates and
// consumed by the fleet mirror.
type ActorLocationEvent struct {
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"` // "patient" or "driver"
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Prediction is one labeled classification result, confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
