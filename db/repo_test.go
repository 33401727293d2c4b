package db

// Integration tests against a real Postgres; they skip when no database
// is reachable. Point TEST_DATABASE_DSN at a scratch database, e.g.
//
//	TEST_DATABASE_DSN="host=127.0.0.1 user=postgres password=postgres dbname=library_test port=5432 sslmode=disable" go test ./db/...

import (
	"context"
	"errors"
	"os"
	"testing"

	"library-lending/models"
	"library-lending/permissions"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) *Repo {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=127.0.0.1 user=postgres password=postgres dbname=library_test port=5432 sslmode=disable"
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Skipf("postgres not available, skipping: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Skipf("postgres not available, skipping: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Skipf("postgres not reachable, skipping: %v", err)
	}

	require.NoError(t, Migrate(gdb))

	cleanup := func() {
		gdb.Exec("DELETE FROM " + models.BorrowTable)
		gdb.Exec("DELETE FROM " + models.OverrideTable)
		gdb.Exec("DELETE FROM " + models.BookTable)
		gdb.Exec("DELETE FROM " + models.UserTable)
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		_ = sqlDB.Close()
	})

	return NewRepo(gdb)
}

func createTestUser(t *testing.T, r *Repo, role permissions.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID:             uuid.NewString(),
		Email:          uuid.NewString() + "@example.com",
		FullName:       "Test User",
		HashedPassword: "not-a-real-hash",
		Role:           role,
		IsActive:       true,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func createTestBook(t *testing.T, r *Repo, isbn, title, author string) *models.Book {
	t.Helper()
	b := &models.Book{
		ID:          uuid.NewString(),
		ISBN:        isbn,
		Title:       title,
		Author:      author,
		IsAvailable: true,
	}
	require.NoError(t, r.CreateBook(context.Background(), b))
	return b
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	r := setupTestRepo(t)
	ctx := context.Background()

	u := createTestUser(t, r, permissions.RoleMember)

	dup := &models.User{
		ID:             uuid.NewString(),
		Email:          u.Email,
		HashedPassword: "not-a-real-hash",
		Role:           permissions.RoleMember,
		IsActive:       true,
	}
	err := r.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFindUserByEmailCaseInsensitive(t *testing.T) {
	r := setupTestRepo(t)
	ctx := context.Background()

	u := createTestUser(t, r, permissions.RoleMember)

	found, err := r.FindUserByEmail(ctx, "  "+toUpperASCII(u.Email)+"  ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestOverrideLifecycle(t *testing.T) {
	r := setupTestRepo(t)
	ctx := context.Background()

	u := createTestUser(t, r, permissions.RoleMember)

	o, err := r.AddOverride(ctx, u.ID, "books:create", permissions.EffectAllow)
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)

	// a second override for the same token is rejected, whatever the effect
	_, err = r.AddOverride(ctx, u.ID, "books:create", permissions.EffectAllow)
	assert.ErrorIs(t, err, ErrOverrideExists)
	_, err = r.AddOverride(ctx, u.ID, "books:create", permissions.EffectDeny)
	assert.ErrorIs(t, err, ErrOverrideExists)

	// deny override strips a role default
	_, err = r.AddOverride(ctx, u.ID, "borrows:create", permissions.EffectDeny)
	require.NoError(t, err)

	list, err := r.ListOverrides(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// overrides arrive preloaded and feed the resolver
	loaded, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	set := permissions.Resolve(loaded.Role, loaded.ResolverOverrides())
	assert.True(t, set.Has(permissions.BooksCreate))
	assert.False(t, set.Has(permissions.BorrowsCreate))

	// deleting through the wrong user is rejected
	other := createTestUser(t, r, permissions.RoleMember)
	err = r.DeleteOverride(ctx, other.ID, o.ID)
	assert.ErrorIs(t, err, ErrOverrideMismatch)

	require.NoError(t, r.DeleteOverride(ctx, u.ID, o.ID))
	list, err = r.ListOverrides(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "borrows:create", list[0].Permission)
}

func TestDeleteUserRemovesOverrides(t *testing.T) {
	r := setupTestRepo(t)
	ctx := context.Background()

	u := createTestUser(t, r, permissions.RoleMember)
	_, err := r.AddOverride(ctx, u.ID, "books:create", permissions.EffectAllow)
	require.NoError(t, err)

	require.NoError(t, r.DeleteUserByID(ctx, u.ID))

	_, err = r.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var n int64
	r.DB.Model(&models.PermissionOverride{}).Where("user_id = ?", u.ID).Count(&n)
	assert.EqualValues(t, 0, n)

	err = r.DeleteUserByID(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
