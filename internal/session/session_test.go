package session

import (
	"testing"
	"time"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

type recordingSender struct {
	events []string
	fail   bool
}

func (r *recordingSender) Send(event string, data any) error {
	r.events = append(r.events, event)
	if r.fail {
		return errSendFailed
	}
	return nil
}

var errSendFailed = &sendError{}

type sendError struct{}

func (*sendError) Error() string { return "send failed" }

func TestBindReplacesPriorBinding(t *testing.T) {
	r := NewRegistry()
	old, fresh := &recordingSender{}, &recordingSender{}

	r.Bind("a1", KindPatient, old)
	r.Bind("a1", KindPatient, fresh)
	r.Send("a1", "ping", nil)

	if len(old.events) != 0 {
		t.Fatalf("stale binding still receiving: %v", old.events)
	}
	if len(fresh.events) != 1 {
		t.Fatalf("expected 1 event on fresh binding, got %d", len(fresh.events))
	}
}

func TestUnbindBySender(t *testing.T) {
	r := NewRegistry()
	s := &recordingSender{}
	r.Bind("d1", KindDriver, s)

	id, kind, ok := r.UnbindBySender(s)
	if !ok || id != "d1" || kind != KindDriver {
		t.Fatalf("unexpected unbind result: %s %s %v", id, kind, ok)
	}
	if _, _, ok := r.UnbindBySender(s); ok {
		t.Fatal("second unbind should find nothing")
	}
}

func TestSendToUnboundIsDropped(t *testing.T) {
	r := NewRegistry()
	// must not panic or block
	r.Send("nobody", "ping", nil)
}

func TestStoreCounts(t *testing.T) {
	s := NewStore()
	s.PutPatient(&models.Patient{ID: "p1", Status: models.PatientAvailable})
	s.PutDriver(&models.Driver{ID: "d1", Status: models.DriverAvailable})
	s.PutRequest(&models.EmergencyRequest{ID: "r1", Status: models.RequestPending, CreatedAt: time.Now()})
	s.PutRequest(&models.EmergencyRequest{ID: "r2", Status: models.RequestAccepted, CreatedAt: time.Now()})

	c := s.Counts()
	if c.ActivePatients != 1 || c.ActiveDrivers != 1 {
		t.Fatalf("unexpected actor counts: %+v", c)
	}
	if c.PendingRequests != 1 || c.TotalRequests != 2 {
		t.Fatalf("unexpected request counts: %+v", c)
	}
}

func TestDriversSnapshotIsSortedAndDetached(t *testing.T) {
	s := NewStore()
	s.PutDriver(&models.Driver{ID: "b"})
	s.PutDriver(&models.Driver{ID: "a"})

	snap := s.Drivers()
	if len(snap) != 2 || snap[0].ID != "a" || snap[1].ID != "b" {
		t.Fatalf("snapshot not sorted: %+v", snap)
	}

	snap[0].Status = models.DriverEnRoute
	if d, _ := s.Driver("a"); d.Status == models.DriverEnRoute {
		t.Fatal("snapshot mutation leaked into store")
	}
}

func TestPendingRequestsOldestFirst(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.PutRequest(&models.EmergencyRequest{ID: "newer", Status: models.RequestPending, CreatedAt: now})
	s.PutRequest(&models.EmergencyRequest{ID: "older", Status: models.RequestPending, CreatedAt: now.Add(-time.Minute)})
	s.PutRequest(&models.EmergencyRequest{ID: "done", Status: models.RequestArrived, CreatedAt: now.Add(-time.Hour)})

	pending := s.PendingRequests()
	if len(pending) != 2 || pending[0].ID != "older" || pending[1].ID != "newer" {
		t.Fatalf("unexpected pending order: %+v", pending)
	}
}
