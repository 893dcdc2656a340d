package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/config"
	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/fieldbook-id/fieldbook/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seeds a couple of demo fields with rate tables plus eight weeks of
// Available schedule records, so a fresh environment has something to book.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	fieldRepo := repository.NewMongoFieldRepository(db)
	scheduleRepo := repository.NewMongoFieldScheduleRepository(db)

	fields := []*domain.Field{
		{
			Name:     "Arena Senayan Futsal A",
			Location: "Jakarta Selatan",
			IsActive: true,
			SlotRates: []domain.SlotRate{
				{SlotID: "morning", Label: "Morning", StartTime: "07:00", EndTime: "09:00", Price: 250000},
				{SlotID: "noon", Label: "Noon", StartTime: "12:00", EndTime: "14:00", Price: 300000},
				{SlotID: "prime", Label: "Prime Time", StartTime: "19:00", EndTime: "21:00", Price: 450000},
			},
		},
		{
			Name:     "Lapangan Mini Soccer BSD",
			Location: "Tangerang Selatan",
			IsActive: true,
			SlotRates: []domain.SlotRate{
				{SlotID: "morning", Label: "Morning", StartTime: "08:00", EndTime: "10:00", Price: 400000},
				{SlotID: "evening", Label: "Evening", StartTime: "17:00", EndTime: "19:00", Price: 550000},
			},
		},
	}

	for _, f := range fields {
		if err := fieldRepo.Create(ctx, f); err != nil {
			log.Fatalf("Failed to seed field %q: %v", f.Name, err)
		}
		fmt.Printf("Seeded field %s (%s)\n", f.Name, f.ID)

		records := scheduleWindow(f, time.Now(), 8*7)
		if err := scheduleRepo.CreateMany(ctx, records); err != nil {
			log.Fatalf("Failed to seed schedules for %q: %v", f.Name, err)
		}
		fmt.Printf("  + %d schedule records\n", len(records))
	}

	fmt.Println("Seeding complete.")
}

// scheduleWindow builds one Available record per slot per day for the
// given number of days starting tomorrow.
func scheduleWindow(f *domain.Field, from time.Time, days int) []*domain.FieldSchedule {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var records []*domain.FieldSchedule
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		for _, rate := range f.SlotRates {
			records = append(records, &domain.FieldSchedule{
				FieldID:   f.ID,
				Date:      date,
				SlotID:    rate.SlotID,
				StartTime: atClock(date, rate.StartTime),
				EndTime:   atClock(date, rate.EndTime),
				Status:    domain.ScheduleStatusAvailable,
				Price:     rate.Price,
			})
		}
	}
	return records
}

func atClock(date time.Time, clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}
