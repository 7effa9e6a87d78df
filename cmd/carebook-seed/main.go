package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/uptrace/bun"

	"carebook/backend/internal/config"
	"carebook/backend/internal/domain"
	"carebook/backend/internal/store/postgres"
)

var specialties = []string{
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

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("service", "carebook-seed"),
	)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.Pool{})
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(ctx, db, 20, log); err != nil {
		log.Error("seed doctors failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := seedPatients(ctx, db, 200, log); err != nil {
		log.Error("seed patients failed", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("seed complete")
}

func seedDoctors(ctx context.Context, db *bun.DB, count int, log *slog.Logger) error {
	log.Info("seeding doctors", slog.Int("count", count))

	doctors := make([]domain.Doctor, 0, count)
	for i := 0; i < count; i++ {
		doctors = append(doctors, domain.Doctor{
			Name:        "Dr. " + gofakeit.Name(),
			Specialty:   specialties[gofakeit.Number(0, len(specialties)-1)],
			Description: gofakeit.Sentence(12),
		})
	}

	_, err := db.NewInsert().Model(&doctors).Exec(ctx)
	return err
}

func seedPatients(ctx context.Context, db *bun.DB, count int, log *slog.Logger) error {
	log.Info("seeding patients", slog.Int("count", count))

	patients := make([]domain.Patient, 0, count)
	for i := 0; i < count; i++ {
		patients = append(patients, domain.Patient{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
		})
	}

	_, err := db.NewInsert().Model(&patients).Exec(ctx)
	return err
}
