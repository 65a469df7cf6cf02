package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// Seeds a demo clinic: physicians with weekday morning/afternoon windows at
// two locations, plus a patient population to book against.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	locations, err := seedLocations(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed locations: %v", err)
	}
	if err := seedPhysicians(context.Background(), pool, locations, 50); err != nil {
		log.Fatalf("seed physicians: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedLocations(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	names := []string{"Main Clinic", "North Annex"}
	ids := make([]uuid.UUID, 0, len(names))

	for _, name := range names {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO locations (id, name, address, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, gofakeit.Address().Address)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	log.Printf("locations seeded: %d", len(ids))
	return ids, nil
}

func seedPhysicians(ctx context.Context, pool *pgxpool.Pool, locations []uuid.UUID, count int) error {
	log.Printf("seeding %d physicians with weekly windows", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	morning := [2]schedule.TimeOfDay{schedule.MustTimeOfDay("08:00"), schedule.MustTimeOfDay("12:00")}
	afternoon := [2]schedule.TimeOfDay{schedule.MustTimeOfDay("14:00"), schedule.MustTimeOfDay("18:00")}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		physicianID := uuid.New()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO physicians (id, name, specialty, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, physicianID, gofakeit.Name(), spec)
		if err != nil {
			return err
		}

		// Monday to Friday, morning at one location, some afternoons at
		// the other.
		for weekday := int(time.Monday); weekday <= int(time.Friday); weekday++ {
			blocks := [][2]schedule.TimeOfDay{morning}
			if gofakeit.Bool() {
				blocks = append(blocks, afternoon)
			}
			for bi, block := range blocks {
				loc := locations[bi%len(locations)]
				_, err := tx.Exec(ctx, `
					INSERT INTO weekly_windows (id, physician_id, location_id, weekday, start_min, end_min, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
				`, uuid.New(), physicianID, loc, weekday, int16(block[0]), int16(block[1]))
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("physicians seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, true, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
