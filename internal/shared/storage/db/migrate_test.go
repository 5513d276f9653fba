package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrateNilDatabaseIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	database, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer database.Close()

	err = Migrate(context.Background(), database, "sideways")
	if err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestEmbeddedMigrationsCoverTables(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var all strings.Builder
	for _, e := range entries {
		raw, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+e.Name())
		if err != nil {
			t.Fatalf("ReadFile %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(raw), "-- +goose Up") {
			t.Fatalf("%s lacks a goose Up section", e.Name())
		}
		all.Write(raw)
	}
	for _, table := range []string{"accounts", "users", "reports", "client_prefs"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("no migration creates %s", table)
		}
	}
}
