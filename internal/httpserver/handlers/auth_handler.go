package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/audit"
	"isodocs/internal/auth"
	"isodocs/internal/models"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "email and password required")
			return
		}
		claims, ok := auth.VerifyCredentials(db, req.Email, req.Password)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		tok, err := auth.Sign(claims)
		if err != nil {
			lg.Errorw("token sign failed", "error", err)
			respondError(w, http.StatusInternalServerError, "token error")
			return
		}
		var u models.User
		if err := db.First(&u, "id = ?", claims.Subject).Error; err != nil {
			lg.Errorw("user fetch after login failed", "user_id", claims.Subject, "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     "LOGIN",
			EntityType: "User",
			EntityID:   uid,
			UserID:     &uid,
			Details:    map[string]any{"email": u.Email},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, map[string]any{"token": tok, "user": u})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.First(&u, "id = ?", auth.Subject(r.Context())).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}
