package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(dsn string) (*PostgresLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresLog{db: db}, nil
}

func (p *PostgresLog) SaveRequest(r *models.EmergencyRequest) error {
	var lat, lng sql.NullFloat64
	if r.Location != nil {
		lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: r.Location.Lng, Valid: true}
	}
	_, err := p.db.Exec(
		`INSERT INTO emergency_requests(id, patient_id, driver_id, status, emergency_type, lat, lng, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.PatientID, nullString(r.DriverID), string(r.Status), r.EmergencyType, lat, lng, r.CreatedAt, time.Now())
	return err
}

func (p *PostgresLog) UpdateRequest(r *models.EmergencyRequest) error {
	_, err := p.db.Exec(
		`UPDATE emergency_requests SET driver_id=$1, status=$2, updated_at=$3 WHERE id=$4`,
		nullString(r.DriverID), string(r.Status), time.Now(), r.ID)
	return err
}

func (p *PostgresLog) Close() error { return p.db.Close() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
