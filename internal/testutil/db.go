// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"matchwell/internal/database"
	"matchwell/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with all migrations
// applied. A single connection is used so every goroutine sees the same
// database and writers queue instead of failing with SQLITE_BUSY.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	return openTestDB(t, dsn, 1)
}

// NewFileTestDB opens a WAL-mode SQLite file under t.TempDir with up to conns
// open connections, so transactions from different goroutines really run side
// by side. Writers still serialize inside SQLite; a writer whose snapshot went
// stale gets SQLITE_BUSY.
func NewFileTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchwell.db")
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return openTestDB(t, dsn, conns)
}

func openTestDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})
	return db
}

// CreateUser inserts a user with the given name and returns it.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	dob := time.Date(1996, time.March, 4, 0, 0, 0, 0, time.UTC)
	u := &models.User{
		Email:       fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Name:        name,
		DateOfBirth: &dob,
		Religion:    "Islam",
	}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return u
}

// CreateUsers inserts one user per name.
func CreateUsers(t *testing.T, db *gorm.DB, names ...string) map[string]*models.User {
	t.Helper()
	out := make(map[string]*models.User, len(names))
	for _, n := range names {
		out[n] = CreateUser(t, db, n)
	}
	return out
}
