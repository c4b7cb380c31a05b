package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupRepoDB connects to the database named by TEST_DATABASE_URL and builds
// the schema in an isolated, throwaway Postgres schema. Skipped when no
// database is configured.
func setupRepoDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse TEST_DATABASE_URL: %v", err)
	}
	schema := fmt.Sprintf("catalog_test_%d", time.Now().UnixNano())
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
		pool.Close()
	})

	ddl, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_core.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(ddl)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return pool
}

// seedAllOfFixture loads two patients. ABCD's session holds eventFocal
// (focal) and eventBoth (focal+motor); WXYZ's session holds another
// focal-only event. Each session carries one record so the sessions shape's
// record join matches.
type allOfFixture struct {
	sessionABCD int64
	sessionWXYZ int64
	eventFocal  int64
	eventBoth   int64
}

func seedAllOfFixture(t *testing.T, pool *pgxpool.Pool) allOfFixture {
	t.Helper()
	ctx := context.Background()
	var fx allOfFixture

	insertPatient := func(code string) int64 {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO patients (patient_code) VALUES ($1) RETURNING patient_id`, code).Scan(&id)
		if err != nil {
			t.Fatalf("insert patient %s: %v", code, err)
		}
		return id
	}
	insertSession := func(patientID int64, start, end time.Time) int64 {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO sessions (patient_id, start_time, end_time) VALUES ($1, $2, $3) RETURNING session_id`,
			patientID, start, end).Scan(&id)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		return id
	}
	insertEvent := func(sessionID int64, onset time.Time, types ...string) int64 {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO events (session_id, onset_time) VALUES ($1, $2) RETURNING event_id`,
			sessionID, onset).Scan(&id)
		if err != nil {
			t.Fatalf("insert event: %v", err)
		}
		for _, name := range types {
			var typeID int64
			err := pool.QueryRow(ctx,
				`INSERT INTO seizure_types (name) VALUES ($1)
				 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				 RETURNING seizure_type_id`, name).Scan(&typeID)
			if err != nil {
				t.Fatalf("insert seizure type %s: %v", name, err)
			}
			if _, err := pool.Exec(ctx,
				`INSERT INTO event_seizure_types (event_id, seizure_type_id) VALUES ($1, $2)`,
				id, typeID); err != nil {
				t.Fatalf("link seizure type %s: %v", name, err)
			}
		}
		return id
	}
	insertRecord := func(sessionID int64, name string) {
		if _, err := pool.Exec(ctx,
			`INSERT INTO records (session_id, modality, share_path, file_name, file_extension)
			 VALUES ($1, 'hospital_eeg', $2, $2, '.edf')`, sessionID, name); err != nil {
			t.Fatalf("insert record: %v", err)
		}
	}

	abcd := insertPatient("ABCD")
	wxyz := insertPatient("WXYZ")

	fx.sessionABCD = insertSession(abcd,
		time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	fx.sessionWXYZ = insertSession(wxyz,
		time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC))

	fx.eventFocal = insertEvent(fx.sessionABCD, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), "focal")
	fx.eventBoth = insertEvent(fx.sessionABCD, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), "focal", "motor")
	insertEvent(fx.sessionWXYZ, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC), "focal")

	insertRecord(fx.sessionABCD, "eeg_a")
	insertRecord(fx.sessionWXYZ, "eeg_b")
	return fx
}

func TestClassifiedEvents_AllOfAgainstDB(t *testing.T) {
	pool := setupRepoDB(t)
	fx := seedAllOfFixture(t, pool)
	repo := NewRepository(pool)
	ctx := context.Background()

	// Both names required: the focal-only events must not match.
	rows, err := repo.ClassifiedEvents(ctx, Filter{EventTypes: []string{"focal", "motor"}})
	if err != nil {
		t.Fatalf("ClassifiedEvents: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v, want just the focal+motor event", rows)
	}
	if rows[0].EventID != fx.eventBoth {
		t.Errorf("matched event %d, want %d", rows[0].EventID, fx.eventBoth)
	}
	if rows[0].SeizureTypes != "focal, motor" {
		t.Errorf("SeizureTypes = %q, want sorted joined list", rows[0].SeizureTypes)
	}

	// A single name matches every event linked to it, and the list shows
	// only the matched name.
	rows, err = repo.ClassifiedEvents(ctx, Filter{PatientCode: "ABCD", EventTypes: []string{"focal"}})
	if err != nil {
		t.Fatalf("ClassifiedEvents: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want both ABCD events", rows)
	}
	for _, row := range rows {
		if row.SeizureTypes != "focal" {
			t.Errorf("event %d SeizureTypes = %q, want just the matched name", row.EventID, row.SeizureTypes)
		}
	}
}

func TestSessions_AllOfAgainstDB(t *testing.T) {
	pool := setupRepoDB(t)
	fx := seedAllOfFixture(t, pool)
	repo := NewRepository(pool)
	ctx := context.Background()

	rows, err := repo.Sessions(ctx, Filter{EventTypes: []string{"focal", "motor"}})
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(rows) != 1 || rows[0].SessionID != fx.sessionABCD {
		t.Fatalf("rows = %+v, want just the session holding the focal+motor event", rows)
	}

	rows, err = repo.Sessions(ctx, Filter{EventTypes: []string{"focal"}})
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %+v, want both sessions", rows)
	}
}
