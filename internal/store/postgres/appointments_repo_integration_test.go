package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

func TestPostgresIntegration_BookingConflictCalendarAndReminders(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appts := NewAppointmentRepo(db)
	notifs := NewNotificationRepo(db)
	directory := NewDirectoryRepo(db)

	doctor := domain.Doctor{Name: "Dr. Adaeze Obi", Specialty: "Cardiology"}
	if _, err := db.NewInsert().Model(&doctor).Exec(ctx); err != nil {
		t.Fatalf("insert doctor: %v", err)
	}
	patient := domain.Patient{Name: "Tunde Bakare", Email: "tunde@example.com"}
	if _, err := db.NewInsert().Model(&patient).Exec(ctx); err != nil {
		t.Fatalf("insert patient: %v", err)
	}

	gotDoctor, err := directory.GetDoctor(ctx, doctor.ID)
	if err != nil || gotDoctor.Name != doctor.Name {
		t.Fatalf("GetDoctor = %+v, %v", gotDoctor, err)
	}
	if _, err := directory.GetPatient(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetPatient unknown err = %v, want %v", err, store.ErrNotFound)
	}

	a1, err := appts.Create(ctx, domain.Appointment{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		DoctorID:    doctor.ID,
		DoctorName:  doctor.Name,
		Date:        "2026-09-14",
		Time:        "08:35",
		Status:      domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if a1.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	// Same doctor, same slot: the unique constraint must reject it
	// even though the first booking is still pending.
	_, err = appts.Create(ctx, domain.Appointment{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		DoctorID:    doctor.ID,
		DoctorName:  doctor.Name,
		Date:        "2026-09-14",
		Time:        "08:35",
		Status:      domain.StatusPending,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate slot err = %v, want %v", err, store.ErrConflict)
	}

	exists, err := appts.ExistsForSlot(ctx, doctor.ID, "2026-09-14", "08:35")
	if err != nil || !exists {
		t.Fatalf("ExistsForSlot = %v, %v, want true", exists, err)
	}
	exists, err = appts.ExistsForSlot(ctx, doctor.ID, "2026-09-14", "09:10")
	if err != nil || exists {
		t.Fatalf("ExistsForSlot free slot = %v, %v, want false", exists, err)
	}

	if _, err := appts.Create(ctx, domain.Appointment{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		DoctorID:    doctor.ID,
		DoctorName:  doctor.Name,
		Date:        "2026-09-14",
		Time:        "13:00",
		Status:      domain.StatusPending,
	}); err != nil {
		t.Fatalf("Create afternoon error: %v", err)
	}

	times, err := appts.BookedTimes(ctx, doctor.ID, "2026-09-14")
	if err != nil {
		t.Fatalf("BookedTimes error: %v", err)
	}
	if len(times) != 2 || times[0] != "08:35" || times[1] != "13:00" {
		t.Fatalf("BookedTimes = %v", times)
	}

	counts, err := appts.CountPerDay(ctx, doctor.ID, "2026-09-01", "2026-09-30")
	if err != nil {
		t.Fatalf("CountPerDay error: %v", err)
	}
	if counts["2026-09-14"] != 2 || len(counts) != 1 {
		t.Fatalf("CountPerDay = %v", counts)
	}

	if err := appts.UpdateStatus(ctx, a1.ID, domain.StatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if err := appts.UpdateStatus(ctx, uuid.New(), domain.StatusConfirmed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateStatus unknown err = %v, want %v", err, store.ErrNotFound)
	}

	confirmed, err := appts.ListConfirmedBetween(ctx, "2026-09-14", "2026-09-15")
	if err != nil {
		t.Fatalf("ListConfirmedBetween error: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != a1.ID {
		t.Fatalf("ListConfirmedBetween = %+v", confirmed)
	}

	if err := appts.UpdateSchedule(ctx, a1.ID, "2026-09-21", "10:20"); err != nil {
		t.Fatalf("UpdateSchedule error: %v", err)
	}
	moved, err := appts.GetByID(ctx, a1.ID)
	if err != nil || moved.Date != "2026-09-21" || moved.Time != "10:20" {
		t.Fatalf("GetByID after move = %+v, %v", moved, err)
	}

	byPatient, err := appts.ListByPatient(ctx, patient.ID)
	if err != nil || len(byPatient) != 2 {
		t.Fatalf("ListByPatient = %d rows, %v, want 2", len(byPatient), err)
	}

	// Reminder dedup: second insert with the same (appointment_id,
	// kind) pair must conflict; plain inbox notifications never do.
	apptID := a1.ID
	if _, err := notifs.Insert(ctx, domain.Notification{
		UserID:        patient.ID,
		Title:         "Appointment reminder",
		Message:       "Reminder: tomorrow.",
		AppointmentID: &apptID,
		Kind:          domain.KindReminder24h,
	}); err != nil {
		t.Fatalf("Insert reminder error: %v", err)
	}
	if _, err := notifs.Insert(ctx, domain.Notification{
		UserID:        patient.ID,
		Title:         "Appointment reminder",
		Message:       "Reminder: tomorrow.",
		AppointmentID: &apptID,
		Kind:          domain.KindReminder24h,
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate reminder err = %v, want %v", err, store.ErrConflict)
	}

	sentAgain, err := notifs.ReminderExists(ctx, a1.ID, domain.KindReminder24h)
	if err != nil || !sentAgain {
		t.Fatalf("ReminderExists = %v, %v, want true", sentAgain, err)
	}

	n1, err := notifs.Insert(ctx, domain.Notification{
		UserID:  patient.ID,
		Title:   "Appointment pending",
		Message: "m1",
	})
	if err != nil {
		t.Fatalf("Insert inbox error: %v", err)
	}
	if _, err := notifs.Insert(ctx, domain.Notification{
		UserID:  patient.ID,
		Title:   "Appointment pending",
		Message: "m2",
	}); err != nil {
		t.Fatalf("second inbox insert error: %v", err)
	}

	inbox, err := notifs.ListForUser(ctx, patient.ID)
	if err != nil || len(inbox) != 3 {
		t.Fatalf("ListForUser = %d rows, %v, want 3", len(inbox), err)
	}

	if err := notifs.SetRead(ctx, n1.ID, true); err != nil {
		t.Fatalf("SetRead error: %v", err)
	}
	readBack, err := notifs.GetByID(ctx, n1.ID)
	if err != nil || !readBack.Read {
		t.Fatalf("GetByID after SetRead = %+v, %v", readBack, err)
	}
	if err := notifs.SetRead(ctx, uuid.New(), true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("SetRead unknown err = %v, want %v", err, store.ErrNotFound)
	}

	if err := appts.Delete(ctx, a1.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := appts.GetByID(ctx, a1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetByID after delete err = %v, want %v", err, store.ErrNotFound)
	}
}

// openTestDB connects with a single pooled connection, moves it into a
// throwaway schema, and applies the migrations there.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("CAREBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CAREBOOK_TEST_DATABASE_URL not set")
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer connectCancel()
	db, err := Connect(connectCtx, databaseURL, Pool{MaxOpen: 1})
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	schema := "carebook_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	// MaxOpen is 1, so the session setting holds for every query
	// the test runs.
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return db
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
