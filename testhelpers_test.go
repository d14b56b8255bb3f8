package auth_test

import (
	"context"
	"database/sql"
	"testing"

	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    user_role TEXT NOT NULL DEFAULT 'readonly',
    first_name TEXT,
    last_name TEXT,
    email TEXT NOT NULL UNIQUE,
    is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    password_hash TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP
);`

	sqliteCreateIdentityLinks = `CREATE TABLE identity_links (
    id TEXT NOT NULL PRIMARY KEY,
    subject TEXT NOT NULL,
    issuer TEXT,
    user_id TEXT NOT NULL,
    email TEXT,
    display_name TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id),
    CONSTRAINT uq_identity_links_subject UNIQUE (subject)
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)
	_, err = bunDB.Exec(sqliteCreateIdentityLinks)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

func setupTestRepo(t *testing.T) (auth.RepositoryManager, *bun.DB) {
	t.Helper()
	db := setupTestDB(t)
	return auth.NewRepositoryManager(db), db
}

func seedUser(t *testing.T, repo auth.RepositoryManager, user *auth.User) *auth.User {
	t.Helper()

	created, err := repo.Users().Register(context.Background(), user)
	require.NoError(t, err)
	return created
}

const testSigningKey = "0123456789abcdef0123456789abcdef"

func newTestTokenService() *auth.TokenServiceImpl {
	return auth.NewTokenService([]byte(testSigningKey), "ledgerkit", 1, 24, nil)
}

type capturingSink struct {
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) has(eventType auth.ActivityEventType) bool {
	for _, evt := range c.events {
		if evt.EventType == eventType {
			return true
		}
	}
	return false
}
