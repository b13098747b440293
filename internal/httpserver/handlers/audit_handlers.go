package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/audit"
	"isodocs/internal/auth"
	"isodocs/internal/models"
)

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ListAuditLogs serves both the filtered log listing and, with
// summary=true, the aggregate report.
func ListAuditLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("summary") == "true" {
			s, err := audit.Summarize(db)
			if err != nil {
				lg.Errorw("audit summary failed", "error", err)
				respondError(w, http.StatusInternalServerError, "failed to fetch audit summary")
				return
			}
			respondJSON(w, http.StatusOK, map[string]any{"summary": s})
			return
		}
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		filters := audit.Filters{
			Action:     q.Get("action"),
			EntityType: q.Get("entityType"),
			EntityID:   q.Get("entityId"),
			UserID:     q.Get("userId"),
			Start:      parseDate(q.Get("startDate")),
			End:        parseDate(q.Get("endDate")),
		}
		entries, total, err := audit.Query(db, filters, page, limit)
		if err != nil {
			lg.Errorw("audit query failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch audit logs")
			return
		}
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 50
		}
		if limit > 100 {
			limit = 100
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"auditLogs":  entries,
			"pagination": paginate(page, limit, total),
		})
	}
}

type createAuditReq struct {
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Details    map[string]any `json:"details"`
}

// CreateAuditLog lets an authenticated caller append a manual entry
// attributed to themselves.
func CreateAuditLog(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAuditReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Action == "" || req.EntityType == "" || req.EntityID == "" {
			respondError(w, http.StatusBadRequest, "missing required fields: action, entityType, entityId")
			return
		}
		uid := auth.Subject(r.Context())
		ip, ua := audit.RequestMeta(r)
		row := models.AuditLog{
			Action:     req.Action,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			UserID:     &uid,
			IPAddress:  ip,
			UserAgent:  ua,
		}
		if len(req.Details) > 0 {
			b, err := json.Marshal(req.Details)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid details")
				return
			}
			row.Details = models.JSONB(b)
		}
		if err := db.Create(&row).Error; err != nil {
			lg.Errorw("audit create failed", "action", req.Action, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to create audit log")
			return
		}
		respondJSON(w, http.StatusCreated, row)
	}
}
