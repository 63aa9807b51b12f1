// Command seeddb creates the dispatch schema and seeds a few professionals
// for local development. Not for production use.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/pkg/postgres"
)

var configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Pool.Close()

	createSchema(client.Pool)
	seedProfessionals(client.Pool)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		number VARCHAR(20) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL,
		requester_id UUID NOT NULL,
		professional_id UUID,
		service_category VARCHAR(100) NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		emergency BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		verification_code CHAR(6) NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		cancellation_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		accepted_at TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings (status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings (created_at)`,

	`CREATE TABLE IF NOT EXISTS professionals (
		id UUID PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		specializations TEXT[] NOT NULL DEFAULT '{}',
		rating NUMERIC(3,2) NOT NULL DEFAULT 0,
		verification_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		available BOOLEAN NOT NULL DEFAULT FALSE,
		current_booking_id UUID,
		last_longitude DOUBLE PRECISION,
		last_latitude DOUBLE PRECISION,
		last_speed_kmh DOUBLE PRECISION,
		last_heading_degrees DOUBLE PRECISION,
		last_accuracy_meters DOUBLE PRECISION,
		last_position_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_professionals_available ON professionals (available) WHERE available = TRUE`,

	`CREATE TABLE IF NOT EXISTS booking_events (
		id BIGSERIAL PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings (id),
		event_type VARCHAR(50) NOT NULL,
		actor_id UUID,
		event_data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events (booking_id)`,

	`CREATE TABLE IF NOT EXISTS booking_reschedules (
		id BIGSERIAL PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings (id),
		actor_id UUID NOT NULL,
		old_time TIMESTAMPTZ NOT NULL,
		new_time TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS booking_number_seq (
		day DATE PRIMARY KEY,
		last_seq INT NOT NULL
	)`,
}

func createSchema(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			log.Fatalf("createSchema: %v", err)
		}
	}
	log.Println("schema ready")
}

func seedProfessionals(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type defaultPro struct {
		ID              string
		Name            string
		Specializations []string
		Rating          float64
		Lon, Lat        float64
	}

	pros := []defaultPro{
		{
			ID:              "11111111-1111-4111-8111-111111111111",
			Name:            "Aslan the Plumber",
			Specializations: []string{"plumbing"},
			Rating:          4.8,
			Lon:             76.8512, Lat: 43.2220,
		},
		{
			ID:              "22222222-2222-4222-8222-222222222222",
			Name:            "Dana Electrics",
			Specializations: []string{"electrical", "appliance_repair"},
			Rating:          4.6,
			Lon:             76.9286, Lat: 43.2567,
		},
		{
			ID:              "33333333-3333-4333-8333-333333333333",
			Name:            "Murat HVAC",
			Specializations: []string{"hvac", "plumbing"},
			Rating:          4.2,
			Lon:             76.8891, Lat: 43.2389,
		},
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		log.Fatalf("seedProfessionals: begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, p := range pros {
		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (
				id, name, specializations, rating, verification_status, available,
				last_longitude, last_latitude, last_position_at
			)
			VALUES ($1, $2, $3, $4, 'VERIFIED', TRUE, $5, $6, now())
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Specializations, p.Rating, p.Lon, p.Lat,
		)
		if err != nil {
			log.Fatalf("seedProfessionals: insert %s: %v", p.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("seedProfessionals: commit: %v", err)
	}
	log.Printf("seeded %d professionals", len(pros))
}
