package main

import (
	"log"

	"recruitflow/internal/config"
	"recruitflow/internal/models"
)

func main() {
	log.Println("🚀 Starting application seeding...")

	// Load configuration
	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	applications := []models.Application{
		{
			Name:     "Chen Wei",
			Phone:    "13800000001",
			Email:    "chen.wei@example.com",
			JobTitle: "Backend Engineer",
			Region:   "Shanghai",
		},
		{
			Name:     "Li Na",
			Phone:    "13800000002",
			Email:    "li.na@example.com",
			JobTitle: "Frontend Engineer",
			Region:   "Beijing",
		},
		{
			Name:     "Zhang Min",
			Phone:    "13800000003",
			Email:    "zhang.min@example.com",
			JobTitle: "Data Analyst",
			Region:   "Shenzhen",
		},
	}

	successCount := 0
	failCount := 0

	for i := range applications {
		app := &applications[i]
		log.Printf("\n📄 Seeding application: %s (%s)", app.Name, app.JobTitle)

		if err := db.Create(app).Error; err != nil {
			log.Printf("   ❌ Failed to create application: %v", err)
			failCount++
			continue
		}

		candidate := &models.Candidate{
			ApplicationID: app.ID,
			Status:        models.StatusPending,
			Round:         1,
			OfferStatus:   models.OfferStatusPending,
		}
		if err := db.Create(candidate).Error; err != nil {
			log.Printf("   ❌ Failed to create candidate: %v", err)
			failCount++
			continue
		}

		log.Printf("   ✅ Candidate created: %s", candidate.ID)
		successCount++
	}

	log.Printf("\n🏁 Seeding finished: %d succeeded, %d failed", successCount, failCount)
}
