package database

import (
	"log"

	"binbird-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SeedJobs loads a handful of demo jobs into an empty jobs table
func SeedJobs(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM jobs"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Jobs already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo jobs...")

	seeds := []struct {
		address string
		client  string
		lat     float64
		lng     float64
		day     string
		jobType models.JobType
		bins    string
	}{
		{"325 S 1st St, San Jose, CA 95113", "Hart Building", 37.3329, -121.8866, "Monday", models.JobTypePutOut, "red, yellow"},
		{"200 E Santa Clara St, San Jose, CA 95113", "City Hall Annex", 37.3361, -121.8869, "Monday", models.JobTypePutOut, "red"},
		{"151 W Mission St, San Jose, CA 95110", "Mission Apartments", 37.3343, -121.8936, "Monday", models.JobTypeBringIn, "red, yellow, green"},
		{"408 Almaden Blvd, San Jose, CA 95110", "Almaden Tower", 37.3313, -121.8917, "Tuesday", models.JobTypePutOut, "yellow"},
		{"180 Park Ave, San Jose, CA 95113", "Park Center", 37.3351, -121.8894, "Tuesday", models.JobTypeBringIn, "red, green"},
		{"72 N Almaden Ave, San Jose, CA 95110", "Almaden Lofts", 37.3352, -121.8931, "Wednesday", models.JobTypePutOut, "red"},
		{"345 E Santa Clara St, San Jose, CA 95113", "Santa Clara Flats", 37.3357, -121.8826, "Thursday", models.JobTypePutOut, "red, yellow"},
		{"99 S Market St, San Jose, CA 95113", "Market Street Cafe", 37.3339, -121.8905, "Friday", models.JobTypeBringIn, "green"},
	}

	for _, s := range seeds {
		job := models.Job{
			ID:         uuid.New().String(),
			Address:    s.address,
			Lat:        s.lat,
			Lng:        s.lng,
			Status:     models.JobStatusScheduled,
			JobType:    s.jobType,
			Bins:       models.StringPtr(s.bins),
			ClientName: models.StringPtr(s.client),
			DayOfWeek:  models.StringPtr(s.day),
		}
		if err := UpsertJob(db, job); err != nil {
			return err
		}
		log.Printf("  ✓ Created job: %s (%s, %s)", s.address, s.day, s.jobType)
	}

	log.Printf("✓ Successfully seeded %d demo jobs", len(seeds))
	return nil
}
