package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"isodocs/internal/models"
)

// dummyHash keeps the unknown-email path on the same bcrypt budget as a real
// lookup, so verification never short-circuits before hashing.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// VerifyCredentials checks an email/password pair against the user store.
// It fails closed: unknown email, inactive account and wrong password are
// indistinguishable to the caller. On success the returned claims carry
// only id, role and department, never the password hash.
func VerifyCredentials(db *gorm.DB, email, password string) (Claims, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	if err := db.First(&u, "LOWER(email) = ?", email).Error; err != nil {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return Claims{}, false
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return Claims{}, false
	}
	if !u.IsActive {
		return Claims{}, false
	}
	return Claims{Subject: u.ID, Role: u.Role, Department: u.Department}, true
}
