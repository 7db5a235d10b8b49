package session

import (
	"sort"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

// Store is the single authoritative in-memory state: patients, drivers and
// emergency requests keyed by id. It is fully transient and rebuilt from a
// cold start.
//
// Store is not safe for concurrent use on its own. The dispatcher owns it
// and serializes every operation (reads under RLock, mutations under Lock),
// so registry updates and store updates land in the same critical section.
type Store struct {
	patients map[string]*models.Patient
	drivers  map[string]*models.Driver
	requests map[string]*models.EmergencyRequest
}

func NewStore() *Store {
	return &Store{
		patients: make(map[string]*models.Patient),
		drivers:  make(map[string]*models.Driver),
		requests: make(map[string]*models.EmergencyRequest),
	}
}

func (s *Store) Patient(id string) (*models.Patient, bool) {
	p, ok := s.patients[id]
	return p, ok
}

func (s *Store) Driver(id string) (*models.Driver, bool) {
	d, ok := s.drivers[id]
	return d, ok
}

func (s *Store) Request(id string) (*models.EmergencyRequest, bool) {
	r, ok := s.requests[id]
	return r, ok
}

func (s *Store) PutPatient(p *models.Patient)          { s.patients[p.ID] = p }
func (s *Store) PutDriver(d *models.Driver)            { s.drivers[d.ID] = d }
func (s *Store) PutRequest(r *models.EmergencyRequest) { s.requests[r.ID] = r }

func (s *Store) DeletePatient(id string) { delete(s.patients, id) }
func (s *Store) DeleteDriver(id string)  { delete(s.drivers, id) }

// Drivers returns a stable-ordered snapshot of all drivers for matching.
func (s *Store) Drivers() []models.Driver {
	out := make([]models.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingRequests returns a snapshot of requests still waiting for a driver,
// oldest first.
func (s *Store) PendingRequests() []models.EmergencyRequest {
	out := make([]models.EmergencyRequest, 0)
	for _, r := range s.requests {
		if r.Status == models.RequestPending {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type Counts struct {
	ActivePatients  int `json:"active_patients"`
	ActiveDrivers   int `json:"active_drivers"`
	PendingRequests int `json:"pending_requests"`
	TotalRequests   int `json:"total_requests"`
}

func (s *Store) Counts() Counts {
	c := Counts{
		ActivePatients: len(s.patients),
		ActiveDrivers:  len(s.drivers),
		TotalRequests:  len(s.requests),
	}
	for _, r := range s.requests {
		if r.Status == models.RequestPending {
			c.PendingRequests++
		}
	}
	return c
}
