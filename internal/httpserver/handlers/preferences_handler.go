package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"isodocs/internal/audit"
	"isodocs/internal/auth"
	"isodocs/internal/models"
)

func GetPreferences(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var pref models.UserPreference
		err := db.First(&pref, "user_id = ?", uid).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pref = models.DefaultPreferences(uid)
		} else if err != nil {
			lg.Errorw("preferences fetch failed", "user_id", uid, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch preferences")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"preferences": pref})
	}
}

func UpdatePreferences(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		pref := models.DefaultPreferences(uid)
		if err := db.First(&pref, "user_id = ?", uid).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			lg.Errorw("preferences fetch failed", "user_id", uid, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch preferences")
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pref.UserID = uid
		pref.UpdatedAt = time.Now()
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&pref).Error; err != nil {
			lg.Errorw("preferences save failed", "user_id", uid, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to save preferences")
			return
		}
		ip, ua := audit.RequestMeta(r)
		audit.Record(db, lg, audit.Entry{
			Action:     "PREFERENCES_UPDATE",
			EntityType: "User",
			EntityID:   uid,
			UserID:     &uid,
			Details: map[string]any{
				"theme":              pref.Theme,
				"language":           pref.Language,
				"emailNotifications": pref.EmailNotifications,
			},
			IPAddress: ip,
			UserAgent: ua,
		})
		respondJSON(w, http.StatusOK, map[string]any{"message": "preferences updated", "preferences": pref})
	}
}
