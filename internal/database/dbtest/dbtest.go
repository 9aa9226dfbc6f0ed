// Package dbtest provides in-memory SQLite databases seeded with the
// ticketing schema for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-eventgrid/internal/database"
	"ms-eventgrid/internal/models"
)

// NewSQLite opens a private in-memory database with the schema applied. A
// single connection is kept so concurrent callers serialise the way row locks
// serialise them on Postgres.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := database.CreateSchema(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func SeedOrganization(t testing.TB, db *bun.DB, name string) models.Organization {
	t.Helper()

	org := models.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     fmt.Sprintf("%s@orgs.test", uuid.NewString()[:8]),
		Phone:     "+8801000000000",
		CreatedAt: time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(&org).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed organization: %v", err)
	}
	return org
}

func SeedEvent(t testing.TB, db *bun.DB, orgID, title string, maxTickets int) models.Event {
	t.Helper()

	start := time.Now().UTC().Add(72 * time.Hour)
	event := models.Event{
		ID:             uuid.NewString(),
		Title:          title,
		Category:       "CONCERT",
		Description:    "seeded event",
		StartTime:      start,
		EndTime:        start.Add(3 * time.Hour),
		MaxTickets:     maxTickets,
		OrganizationID: orgID,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(&event).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
	return event
}

func SeedUser(t testing.TB, db *bun.DB, email string) models.User {
	t.Helper()

	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(&user).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}
