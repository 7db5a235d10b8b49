package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sanjarbek17/MedAI/internal/matcher"
	"github.com/Sanjarbek17/MedAI/internal/models"
	"github.com/Sanjarbek17/MedAI/internal/observability"
	"github.com/Sanjarbek17/MedAI/internal/session"
)

// estimatedArrival is the coarse placeholder sent with driver_assigned.
// Real ETA computation is out of scope for dispatch.
const estimatedArrival = "5-10 minutes"

// LocationPublisher streams driver location events to the fleet pipeline.
type LocationPublisher interface {
	PublishLocation(ev models.ActorLocationEvent) error
}

// AuditLog records request lifecycle changes write-behind. It is never read
// back: dispatch state stays transient.
type AuditLog interface {
	SaveRequest(r *models.EmergencyRequest) error
	UpdateRequest(r *models.EmergencyRequest) error
}

// Billing places a hold when a driver accepts, captures it on arrival and
// releases it if the driver drops off mid-assignment.
type Billing interface {
	Hold(ctx context.Context, requestID string) (holdID string, err error)
	Capture(ctx context.Context, holdID string) error
	Release(ctx context.Context, holdID string) error
}

// Dispatcher is the dispatch state machine. Every operation runs under one
// coarse lock covering the session store and the connection registry, so a
// logical operation (check-then-set plus its broadcasts) is atomic; sends
// themselves only enqueue and never block the lock. Calls to the external
// collaborators (billing, audit, location publisher) happen after the lock
// is released: a slow remote must never stall dispatch.
type Dispatcher struct {
	mu       sync.RWMutex
	store    *session.Store
	registry *session.Registry
	logger   *slog.Logger

	// optional collaborators, nil when not configured
	publisher LocationPublisher
	audit     AuditLog
	billing   Billing
}

type Option func(*Dispatcher)

func WithPublisher(p LocationPublisher) Option { return func(d *Dispatcher) { d.publisher = p } }
func WithAuditLog(a AuditLog) Option           { return func(d *Dispatcher) { d.audit = a } }
func WithBilling(b Billing) Option             { return func(d *Dispatcher) { d.billing = b } }

func New(logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    session.NewStore(),
		registry: session.NewRegistry(),
		logger:   logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// RegisterPatient creates or overwrites a patient entry and binds its
// connection. Re-registering an id replaces prior state; any previous
// active request reference is silently abandoned.
func (d *Dispatcher) RegisterPatient(id string, loc *models.Location, sender session.Sender) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	d.store.PutPatient(&models.Patient{ID: id, Location: loc, Status: models.PatientAvailable})
	d.registry.Bind(id, session.KindPatient, sender)
	d.syncGauges()
	d.registry.Send(id, EventPatientRegistered, RegisteredPayload{PatientID: id, Status: "registered"})
	d.logger.Info("patient registered", "patient_id", id)
	return id
}

// RegisterDriver is the driver-side twin of RegisterPatient.
func (d *Dispatcher) RegisterDriver(id string, loc *models.Location, sender session.Sender) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	d.store.PutDriver(&models.Driver{ID: id, Location: loc, Status: models.DriverAvailable})
	d.registry.Bind(id, session.KindDriver, sender)
	d.syncGauges()
	d.registry.Send(id, EventDriverRegistered, RegisteredPayload{DriverID: id, Status: "registered"})
	d.logger.Info("driver registered", "driver_id", id)
	return id
}

// CreateEmergencyRequest opens a new pending request for the patient and
// alerts the nearest available driver. The alerted driver stays available
// until it explicitly accepts, so it can receive offers for further
// requests in the meantime. With no candidate the request stays pending
// indefinitely; only a later decline triggers another match.
func (d *Dispatcher) CreateEmergencyRequest(patientID string, loc *models.Location, emergencyType string) (string, error) {
	d.mu.Lock()
	p, ok := d.store.Patient(patientID)
	if !ok {
		d.mu.Unlock()
		return "", fmt.Errorf("patient not registered: %w", ErrUnknownActor)
	}
	if emergencyType == "" {
		emergencyType = "general"
	}

	req := &models.EmergencyRequest{
		ID:            uuid.NewString(),
		PatientID:     patientID,
		Status:        models.RequestPending,
		CreatedAt:     time.Now(),
		Location:      loc,
		EmergencyType: emergencyType,
	}
	d.store.PutRequest(req)

	p.Status = models.PatientRequesting
	p.Location = loc
	p.ActiveRequestID = req.ID

	observability.EmergencyRequestsTotal.Inc()

	if m, ok := matcher.NearestAvailable(loc, d.store.Drivers(), nil); ok {
		d.alertDriver(m, req)
		d.registry.Send(patientID, EventRequestSent, RequestSentPayload{
			RequestID:   req.ID,
			Message:     "Emergency request sent to nearest driver",
			DriverFound: true,
		})
	} else {
		observability.MatchMissesTotal.Inc()
		d.registry.Send(patientID, EventRequestSent, RequestSentPayload{
			RequestID:   req.ID,
			Message:     "No drivers available, you are in queue",
			DriverFound: false,
		})
	}
	d.logger.Info("emergency request created", "request_id", req.ID, "patient_id", patientID, "type", emergencyType)
	auditCopy := *req
	d.mu.Unlock()

	d.auditSave(&auditCopy)
	return req.ID, nil
}

// AcceptRequest binds a pending request to the accepting driver.
func (d *Dispatcher) AcceptRequest(driverID, requestID string) error {
	d.mu.Lock()
	drv, okD := d.store.Driver(driverID)
	req, okR := d.store.Request(requestID)
	if !okD || !okR {
		d.mu.Unlock()
		return fmt.Errorf("invalid driver or request: %w", ErrInvalidOperation)
	}
	if req.Status != models.RequestPending {
		d.mu.Unlock()
		return fmt.Errorf("request no longer available: %w", ErrInvalidOperation)
	}

	req.Status = models.RequestAccepted
	req.DriverID = driverID
	drv.Status = models.DriverEnRoute
	drv.CurrentRequestID = requestID

	// The patient may have dropped off since creating the request; the
	// assignment still proceeds and the notification is best-effort.
	if p, ok := d.store.Patient(req.PatientID); ok {
		p.Status = models.PatientDriverAssigned
	}

	d.registry.Send(req.PatientID, EventDriverAssigned, DriverAssignedPayload{
		DriverID:         driverID,
		DriverLocation:   drv.Location,
		EstimatedArrival: estimatedArrival,
	})
	d.registry.Send(driverID, EventRequestAccepted, RequestAcceptedPayload{
		RequestID:       requestID,
		PatientLocation: req.Location,
	})
	d.logger.Info("request accepted", "request_id", requestID, "driver_id", driverID)
	auditCopy := *req
	d.mu.Unlock()

	// The hold is a remote call, so it runs after the lock; its id lands on
	// the request once the call returns.
	if d.billing != nil {
		if holdID, err := d.billing.Hold(context.Background(), requestID); err != nil {
			d.logger.Warn("billing hold failed", "request_id", requestID, "error", err)
		} else {
			d.mu.Lock()
			if r, ok := d.store.Request(requestID); ok {
				r.PaymentHoldID = holdID
			}
			d.mu.Unlock()
		}
	}
	d.auditUpdate(&auditCopy)
	return nil
}

// DeclineRequest re-runs matching for the request, excluding only the
// declining driver. An unknown request id is silently ignored. The request
// keeps no decline history, so a driver excluded now can be re-offered the
// same request on a later decline cycle.
func (d *Dispatcher) DeclineRequest(driverID, requestID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	req, ok := d.store.Request(requestID)
	if !ok {
		return nil
	}

	if m, ok := matcher.NearestAvailable(req.Location, d.store.Drivers(), matcher.Exclude(driverID)); ok {
		d.alertDriver(m, req)
		d.logger.Info("request reassigned after decline", "request_id", requestID, "declined_by", driverID, "offered_to", m.Driver.ID)
		return nil
	}
	observability.MatchMissesTotal.Inc()
	if _, ok := d.store.Patient(req.PatientID); ok {
		d.registry.Send(req.PatientID, EventNoDriversAvailable, MessagePayload{
			Message: "No drivers available at the moment, please try again",
		})
	}
	d.logger.Info("no drivers left after decline", "request_id", requestID, "declined_by", driverID)
	return nil
}

// UpdateLocation stores a new position for a registered actor and relays it
// to the counterpart of an active assignment. Unregistered actors are a
// silent no-op.
func (d *Dispatcher) UpdateLocation(actorID string, kind session.ActorKind, loc *models.Location) {
	d.mu.Lock()
	publish := false
	switch kind {
	case session.KindPatient:
		p, ok := d.store.Patient(actorID)
		if !ok {
			break
		}
		p.Location = loc
		if req, ok := d.store.Request(p.ActiveRequestID); ok && req.DriverID != "" {
			d.registry.Send(req.DriverID, EventPatientLocation, PatientLocationPayload{PatientLocation: loc})
		}
	case session.KindDriver:
		drv, ok := d.store.Driver(actorID)
		if !ok {
			break
		}
		drv.Location = loc
		if req, ok := d.store.Request(drv.CurrentRequestID); ok {
			d.registry.Send(req.PatientID, EventDriverLocation, DriverLocationPayload{DriverLocation: loc})
		}
		publish = d.publisher != nil && loc != nil
	}
	d.mu.Unlock()

	// The broker write can block; it happens off the lock so one driver's
	// update cannot stall everyone else's dispatch.
	if publish {
		ev := models.ActorLocationEvent{
			ActorID:   actorID,
			Kind:      string(kind),
			Location:  *loc,
			Timestamp: time.Now(),
		}
		if err := d.publisher.PublishLocation(ev); err != nil {
			d.logger.Warn("location publish failed", "driver_id", actorID, "error", err)
		}
	}
}

// MarkArrived moves an en-route driver's request into its terminal state.
// Arrived is terminal for both driver and request; there is no automatic
// reset back to available.
func (d *Dispatcher) MarkArrived(driverID string) error {
	d.mu.Lock()
	drv, ok := d.store.Driver(driverID)
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("driver not found: %w", ErrUnknownActor)
	}
	if drv.CurrentRequestID == "" {
		d.mu.Unlock()
		return fmt.Errorf("driver has no active request: %w", ErrInvalidOperation)
	}
	req, ok := d.store.Request(drv.CurrentRequestID)
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("active request missing: %w", ErrUnknownRequest)
	}

	req.Status = models.RequestArrived
	drv.Status = models.DriverArrived
	if p, ok := d.store.Patient(req.PatientID); ok {
		p.Status = models.PatientArrived
	}
	holdID := req.PaymentHoldID
	req.PaymentHoldID = ""

	d.registry.Send(req.PatientID, EventAmbulanceArrived, MessagePayload{Message: "Ambulance has arrived at your location"})
	d.registry.Send(driverID, EventArrivalConfirmed, MessagePayload{Message: "Arrival confirmed"})
	d.logger.Info("ambulance arrived", "request_id", req.ID, "driver_id", driverID)
	auditCopy := *req
	d.mu.Unlock()

	if d.billing != nil && holdID != "" {
		if err := d.billing.Capture(context.Background(), holdID); err != nil {
			d.logger.Warn("billing capture failed", "request_id", auditCopy.ID, "error", err)
		}
	}
	d.auditUpdate(&auditCopy)
	return nil
}

// Disconnect removes whichever actor was bound to the connection. A
// departing patient tells nobody; a departing driver with a live request
// tells the patient a new driver will be sought, though no automatic
// re-match happens - the patient must issue a fresh emergency request.
func (d *Dispatcher) Disconnect(sender session.Sender) {
	d.mu.Lock()
	actorID, kind, ok := d.registry.UnbindBySender(sender)
	if !ok {
		d.mu.Unlock()
		return
	}
	var holdID, holdRequestID string
	switch kind {
	case session.KindPatient:
		d.store.DeletePatient(actorID)
		d.logger.Info("patient disconnected", "patient_id", actorID)
	case session.KindDriver:
		if drv, ok := d.store.Driver(actorID); ok && drv.CurrentRequestID != "" {
			if req, ok := d.store.Request(drv.CurrentRequestID); ok {
				holdID = req.PaymentHoldID
				holdRequestID = req.ID
				req.PaymentHoldID = ""
				if _, ok := d.store.Patient(req.PatientID); ok {
					d.registry.Send(req.PatientID, EventDriverDisconnected, MessagePayload{
						Message: "Driver disconnected, finding new driver",
					})
				}
			}
		}
		d.store.DeleteDriver(actorID)
		d.logger.Info("driver disconnected", "driver_id", actorID)
	}
	d.syncGauges()
	d.mu.Unlock()

	if d.billing != nil && holdID != "" {
		if err := d.billing.Release(context.Background(), holdID); err != nil {
			d.logger.Warn("billing release failed", "request_id", holdRequestID, "error", err)
		}
	}
}

// auditSave and auditUpdate run off the dispatcher lock; the log is
// write-behind and dispatch never waits on it.
func (d *Dispatcher) auditSave(r *models.EmergencyRequest) {
	if d.audit == nil {
		return
	}
	if err := d.audit.SaveRequest(r); err != nil {
		d.logger.Warn("audit save failed", "request_id", r.ID, "error", err)
	}
}

func (d *Dispatcher) auditUpdate(r *models.EmergencyRequest) {
	if d.audit == nil {
		return
	}
	if err := d.audit.UpdateRequest(r); err != nil {
		d.logger.Warn("audit update failed", "request_id", r.ID, "error", err)
	}
}

func (d *Dispatcher) syncGauges() {
	c := d.store.Counts()
	observability.ActivePatients.Set(float64(c.ActivePatients))
	observability.ActiveDrivers.Set(float64(c.ActiveDrivers))
}
