package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"isodocs/internal/rbac"
)

type prefsResp struct {
	Preferences struct {
		EmailNotifications bool   `json:"emailNotifications"`
		Theme              string `json:"theme"`
		Language           string `json:"language"`
		WeeklyReports      bool   `json:"weeklyReports"`
	} `json:"preferences"`
}

func TestPreferencesDefaults(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/user/preferences", e.tokens[rbac.RoleEmployee], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp prefsResp
	decode(t, rec, &resp)
	require.True(t, resp.Preferences.EmailNotifications)
	require.Equal(t, "light", resp.Preferences.Theme)
	require.Equal(t, "en", resp.Preferences.Language)
	require.False(t, resp.Preferences.WeeklyReports)
}

func TestPreferencesPersistAcrossReads(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPut, "/api/user/preferences", e.tokens[rbac.RoleEmployee], map[string]any{
		"theme":         "dark",
		"weeklyReports": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	row := e.lastAudit(t)
	require.Equal(t, "PREFERENCES_UPDATE", row.Action)
	require.Equal(t, e.users[rbac.RoleEmployee].ID, row.EntityID)

	rec = e.do(t, http.MethodGet, "/api/user/preferences", e.tokens[rbac.RoleEmployee], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp prefsResp
	decode(t, rec, &resp)
	require.Equal(t, "dark", resp.Preferences.Theme)
	require.True(t, resp.Preferences.WeeklyReports)
	// Fields omitted from the write keep their previous values.
	require.True(t, resp.Preferences.EmailNotifications)

	// Preferences are per user.
	rec = e.do(t, http.MethodGet, "/api/user/preferences", e.tokens[rbac.RoleManager], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	require.Equal(t, "light", resp.Preferences.Theme)
}
