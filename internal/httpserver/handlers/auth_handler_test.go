package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"isodocs/internal/auth"
	"isodocs/internal/rbac"
)

func TestLoginSuccess(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "manager@iso-compliance.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "manager@iso-compliance.com", resp.User.Email)
	require.Equal(t, "MANAGER", resp.User.Role)
	require.NotContains(t, rec.Body.String(), "passwordHash")

	claims, err := auth.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, e.users[rbac.RoleManager].ID, claims.Subject)
	require.Equal(t, rbac.RoleManager, claims.Role)

	row := e.lastAudit(t)
	require.Equal(t, "LOGIN", row.Action)
	require.Equal(t, e.users[rbac.RoleManager].ID, row.EntityID)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "manager@iso-compliance.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.EqualValues(t, 0, e.auditCount(t))
}

func TestLoginMissingFields(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "x@y.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "error")
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/me", "/api/documents", "/api/audit", "/api/user/preferences"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := e.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/me", e.tokens[rbac.RoleAuditor], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var u struct {
		Email string `json:"email"`
	}
	decode(t, rec, &u)
	require.Equal(t, "auditor@iso-compliance.com", u.Email)
}
