package database

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Ping(db); err != nil {
		t.Fatalf("ping: %v", err)
	}
	for _, table := range []any{&models.User{}, &models.Task{}, &models.Extras{}, "task_labels", "extras_labels", &models.SystemLog{}} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table for %v", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Fatal("expected error")
	}
}
