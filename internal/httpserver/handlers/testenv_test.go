package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/auth"
	"isodocs/internal/httpserver"
	"isodocs/internal/models"
	"isodocs/internal/rbac"
	"isodocs/internal/upload"
)

// sharedHash is computed once; bcrypt is deliberately slow and every test
// user logs in with the same password.
var sharedHash string

const testPassword = "password123!"

func passwordHash(t *testing.T) string {
	t.Helper()
	if sharedHash == "" {
		h, err := auth.HashPassword(testPassword)
		require.NoError(t, err)
		sharedHash = h
	}
	return sharedHash
}

type env struct {
	db      *gorm.DB
	router  http.Handler
	uploads string
	users   map[rbac.Role]models.User
	tokens  map[rbac.Role]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_EXPIRES_IN", "")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.DocumentApproval{},
		&models.AuditLog{},
		&models.UserPreference{},
	))

	e := &env{
		db:      db,
		uploads: t.TempDir(),
		users:   map[rbac.Role]models.User{},
		tokens:  map[rbac.Role]string{},
	}
	e.router = httpserver.NewRouter(db, zap.NewNop().Sugar(), upload.NewStore(e.uploads))

	seeds := []struct {
		role  rbac.Role
		email string
	}{
		{rbac.RoleAdmin, "admin@iso-compliance.com"},
		{rbac.RoleManager, "manager@iso-compliance.com"},
		{rbac.RoleEmployee, "employee@iso-compliance.com"},
		{rbac.RoleAuditor, "auditor@iso-compliance.com"},
	}
	for _, s := range seeds {
		u := models.User{
			Email:        s.email,
			Name:         string(s.role),
			Role:         s.role,
			Department:   "QA",
			PasswordHash: passwordHash(t),
			IsActive:     true,
		}
		require.NoError(t, db.Create(&u).Error)
		e.users[s.role] = u
		tok, err := auth.Sign(auth.Claims{Subject: u.ID, Role: u.Role, Department: u.Department})
		require.NoError(t, err)
		e.tokens[s.role] = tok
	}
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func (e *env) auditCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.AuditLog{}).Count(&n).Error)
	return n
}

func (e *env) lastAudit(t *testing.T) models.AuditLog {
	t.Helper()
	var row models.AuditLog
	require.NoError(t, e.db.Order("id desc").First(&row).Error)
	return row
}

func (e *env) createDocument(t *testing.T, creator rbac.Role, title string) models.Document {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/documents", e.tokens[creator], map[string]any{
		"title":    title,
		"category": "Policies",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc models.Document
	decode(t, rec, &doc)
	return doc
}

// multipartUpload builds a multipart body with explicit per-file content types.
func multipartUpload(t *testing.T, docID string, files map[string]string, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("documentId", docID))
	for name, content := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
