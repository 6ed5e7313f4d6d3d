package main

import (
	"fmt"
	"log"

	"binbird-backend/internal/config"
	"binbird-backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.SeedJobs(db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Migration completed successfully!")

	var result struct {
		TotalJobs        int `db:"total_jobs"`
		JobsWithoutCoord int `db:"jobs_without_coords"`
		StorageRows      int `db:"storage_rows"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM jobs) AS total_jobs,
			(SELECT COUNT(*) FROM jobs WHERE lat IS NULL OR lng IS NULL) AS jobs_without_coords,
			(SELECT COUNT(*) FROM device_storage) AS storage_rows
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total jobs:              %d\n", result.TotalJobs)
	fmt.Printf("Jobs without coords:     %d (can't be planned)\n", result.JobsWithoutCoord)
	fmt.Printf("Stored run-state keys:   %d\n", result.StorageRows)
	fmt.Println("============================================================")
}
