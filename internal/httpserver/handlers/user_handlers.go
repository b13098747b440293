package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/audit"
	"isodocs/internal/auth"
	"isodocs/internal/models"
	"isodocs/internal/rbac"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		if err := db.Order("created_at desc").Find(&users).Error; err != nil {
			lg.Errorw("user list failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch users")
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

func GetUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "user not found")
				return
			}
			lg.Errorw("user fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

type updateUserReq struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"isActive"`
}

func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req updateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "user not found")
				return
			}
			lg.Errorw("user fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}
		var updated []string
		if req.Name != nil {
			u.Name = *req.Name
			updated = append(updated, "name")
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email == "" {
				respondError(w, http.StatusBadRequest, "email cannot be empty")
				return
			}
			u.Email = email
			updated = append(updated, "email")
		}
		if req.Password != nil && *req.Password != "" {
			if len(*req.Password) < 8 {
				respondError(w, http.StatusBadRequest, "password must be at least 8 characters long")
				return
			}
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				lg.Errorw("password hash failed", "error", err)
				respondError(w, http.StatusInternalServerError, "failed to update user")
				return
			}
			u.PasswordHash = hash
			updated = append(updated, "password")
		}
		if req.Role != nil {
			role, ok := rbac.ParseRole(*req.Role)
			if !ok {
				respondError(w, http.StatusBadRequest, "invalid role")
				return
			}
			u.Role = role
			updated = append(updated, "role")
		}
		if req.Department != nil {
			u.Department = *req.Department
			updated = append(updated, "department")
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
			updated = append(updated, "isActive")
		}
		u.UpdatedAt = time.Now()
		if err := db.Save(&u).Error; err != nil {
			lg.Errorw("user update failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		ip, ua := audit.RequestMeta(r)
		actor := auth.Subject(r.Context())
		audit.Record(db, lg, audit.Entry{
			Action:     "USER_UPDATED",
			EntityType: "User",
			EntityID:   u.ID,
			UserID:     &actor,
			Details:    map[string]any{"updatedFields": updated},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, u)
	}
}

func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "user not found")
				return
			}
			lg.Errorw("user fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}
		if err := db.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			lg.Errorw("user delete failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to delete user")
			return
		}
		// Audit entries referencing the deleted user keep its id.
		ip, ua := audit.RequestMeta(r)
		actor := auth.Subject(r.Context())
		audit.Record(db, lg, audit.Entry{
			Action:     "USER_DELETED",
			EntityType: "User",
			EntityID:   id,
			UserID:     &actor,
			Details:    map[string]any{"deletedUserEmail": u.Email},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
