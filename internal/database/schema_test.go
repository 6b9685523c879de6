package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatementsCoverTables(t *testing.T) {
	stmts, err := Statements()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"jams", "songs", "song_instrument_slots", "guests", "song_candidates", "song_ratings"}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements, want %d", len(stmts), len(want))
	}
	for i, table := range want {
		if !strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("statement %d = %.60q, want table %s", i, stmts[i], table)
		}
		if strings.Contains(stmts[i], "--") {
			t.Errorf("statement %d still carries a comment", i)
		}
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts, _ := Statements()
	for _, s := range stmts {
		mock.ExpectExec(regexp.QuoteMeta(s)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jams").WillReturnError(errors.New("denied"))
	err = Migrate(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "statement 1") {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDSN(t *testing.T) {
	o := Options{User: "jam", Pass: "s3cret", Host: "db", Port: "3306", Name: "jams"}
	got := o.DSN()
	for _, part := range []string{"jam:s3cret@tcp(db:3306)/jams", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(got, part) {
			t.Errorf("DSN %q missing %q", got, part)
		}
	}
}
