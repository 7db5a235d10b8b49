package dispatch

import "github.com/Sanjarbek17/MedAI/internal/models"

// Outbound event names.
const (
	EventConnected          = "connected"
	EventPatientRegistered  = "patient_registered"
	EventDriverRegistered   = "driver_registered"
	EventEmergencyAlert     = "emergency_alert"
	EventRequestSent        = "request_sent"
	EventDriverAssigned     = "driver_assigned"
	EventRequestAccepted    = "request_accepted"
	EventPatientLocation    = "patient_location_update"
	EventDriverLocation     = "driver_location_update"
	EventAmbulanceArrived   = "ambulance_arrived"
	EventArrivalConfirmed   = "arrival_confirmed"
	EventDriverDisconnected = "driver_disconnected"
	EventNoDriversAvailable = "no_drivers_available"
	EventError              = "error"
)

type RegisteredPayload struct {
	PatientID string `json:"patient_id,omitempty"`
	DriverID  string `json:"driver_id,omitempty"`
	Status    string `json:"status"`
}

// EmergencyAlertPayload is the offer sent to a candidate driver, on
// creation and on every decline-triggered reassignment.
type EmergencyAlertPayload struct {
	RequestID       string           `json:"request_id"`
	PatientLocation *models.Location `json:"patient_location"`
	EmergencyType   string           `json:"emergency_type"`
	DistanceKm      float64          `json:"distance"`
}

type RequestSentPayload struct {
	RequestID   string `json:"request_id"`
	Message     string `json:"message"`
	DriverFound bool   `json:"driver_found"`
}

type DriverAssignedPayload struct {
	DriverID         string           `json:"driver_id"`
	DriverLocation   *models.Location `json:"driver_location"`
	EstimatedArrival string           `json:"estimated_arrival"`
}

type RequestAcceptedPayload struct {
	RequestID       string           `json:"request_id"`
	PatientLocation *models.Location `json:"patient_location"`
}

type PatientLocationPayload struct {
	PatientLocation *models.Location `json:"patient_location"`
}

type DriverLocationPayload struct {
	DriverLocation *models.Location `json:"driver_location"`
}

type MessagePayload struct {
	Message string `json:"message"`
}
