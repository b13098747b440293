package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"isodocs/internal/models"
	"isodocs/internal/rbac"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := models.User{
		Email:        email,
		Name:         "Test User",
		Role:         rbac.RoleEmployee,
		Department:   "Operations",
		PasswordHash: hash,
		IsActive:     active,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestVerifyCredentialsSuccess(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db, "employee@iso-compliance.com", "employee123", true)

	claims, ok := VerifyCredentials(db, "employee@iso-compliance.com", "employee123")
	require.True(t, ok)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, rbac.RoleEmployee, claims.Role)
	require.Equal(t, "Operations", claims.Department)
}

func TestVerifyCredentialsEmailCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, "employee@iso-compliance.com", "employee123", true)

	_, ok := VerifyCredentials(db, "  Employee@ISO-Compliance.com ", "employee123")
	require.True(t, ok)
}

func TestVerifyCredentialsWrongPassword(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, "employee@iso-compliance.com", "employee123", true)

	_, ok := VerifyCredentials(db, "employee@iso-compliance.com", "not-the-password")
	require.False(t, ok)
}

func TestVerifyCredentialsInactiveAccount(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, "former@iso-compliance.com", "employee123", false)

	_, ok := VerifyCredentials(db, "former@iso-compliance.com", "employee123")
	require.False(t, ok)
}

func TestVerifyCredentialsUnknownEmail(t *testing.T) {
	db := openTestDB(t)
	_, ok := VerifyCredentials(db, "nobody@iso-compliance.com", "whatever")
	require.False(t, ok)
}
