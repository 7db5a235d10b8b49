package dispatch

import (
	"github.com/Sanjarbek17/MedAI/internal/matcher"
	"github.com/Sanjarbek17/MedAI/internal/models"
	"github.com/Sanjarbek17/MedAI/internal/observability"
	"github.com/Sanjarbek17/MedAI/internal/session"
)

// alertDriver sends the emergency offer to a matched driver. Caller holds
// the dispatcher lock.
func (d *Dispatcher) alertDriver(m matcher.Match, req *models.EmergencyRequest) {
	observability.MatchesTotal.Inc()
	d.registry.Send(m.Driver.ID, EventEmergencyAlert, EmergencyAlertPayload{
		RequestID:       req.ID,
		PatientLocation: req.Location,
		EmergencyType:   req.EmergencyType,
		DistanceKm:      m.DistanceKm,
	})
}

// PatientView is the read-only status projection for one patient.
type PatientView struct {
	PatientID      string                   `json:"patient_id"`
	Status         models.PatientStatus     `json:"status"`
	Location       *models.Location         `json:"location"`
	CurrentRequest *models.EmergencyRequest `json:"current_request,omitempty"`
}

// DriverView is the read-only status projection for one driver.
type DriverView struct {
	DriverID       string                   `json:"driver_id"`
	Status         models.DriverStatus      `json:"status"`
	Location       *models.Location         `json:"location"`
	CurrentRequest *models.EmergencyRequest `json:"current_request,omitempty"`
}

// SystemStatus returns system-wide counts from a consistent snapshot.
func (d *Dispatcher) SystemStatus() session.Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Counts()
}

func (d *Dispatcher) PatientStatus(id string) (PatientView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.store.Patient(id)
	if !ok {
		return PatientView{}, false
	}
	v := PatientView{PatientID: p.ID, Status: p.Status, Location: p.Location}
	if req, ok := d.store.Request(p.ActiveRequestID); ok {
		cp := *req
		v.CurrentRequest = &cp
	}
	return v, true
}

func (d *Dispatcher) DriverStatus(id string) (DriverView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	drv, ok := d.store.Driver(id)
	if !ok {
		return DriverView{}, false
	}
	v := DriverView{DriverID: drv.ID, Status: drv.Status, Location: drv.Location}
	if req, ok := d.store.Request(drv.CurrentRequestID); ok {
		cp := *req
		v.CurrentRequest = &cp
	}
	return v, true
}

// PendingRequests lists requests still waiting for a driver, oldest first.
func (d *Dispatcher) PendingRequests() []models.EmergencyRequest {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.PendingRequests()
}
