package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
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

// canModifyDocument is the ownership refinement: edit/delete additionally
// require the caller to be the creator or an Admin. It is layered on top of
// the permission check, never instead of it.
func canModifyDocument(c auth.Claims, doc *models.Document) bool {
	return c.Role == rbac.RoleAdmin || doc.CreatorID == c.Subject
}

// canSeeDocument applies the visibility flag. Employees only see public
// documents plus those they created or are assigned to.
func canSeeDocument(c auth.Claims, doc *models.Document) bool {
	if c.Role != rbac.RoleEmployee || doc.IsPublic || doc.CreatorID == c.Subject {
		return true
	}
	return doc.AssigneeID != nil && *doc.AssigneeID == c.Subject
}

func ListDocuments(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		q := db.Model(&models.Document{})
		if v := r.URL.Query().Get("category"); v != "" {
			q = q.Where("category = ?", v)
		}
		if v := r.URL.Query().Get("status"); v != "" {
			q = q.Where("status = ?", v)
		}
		if v := r.URL.Query().Get("search"); v != "" {
			like := "%" + strings.ToLower(v) + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}
		if claims.Role == rbac.RoleEmployee {
			q = q.Where("is_public = ? OR creator_id = ? OR assignee_id = ?", true, claims.Subject, claims.Subject)
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			lg.Errorw("document count failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch documents")
			return
		}
		var docs []models.Document
		err := q.Preload("Creator").Preload("Assignee").
			Order("created_at desc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&docs).Error
		if err != nil {
			lg.Errorw("document list failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch documents")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"documents":  docs,
			"pagination": paginate(page, limit, total),
		})
	}
}

type createDocumentReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"isPublic"`
	AssigneeID  *string  `json:"assigneeId"`
}

func CreateDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDocumentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Category) == "" {
			respondError(w, http.StatusBadRequest, "title and category required")
			return
		}
		claims := auth.FromContext(r.Context())
		doc := models.Document{
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Content:     req.Content,
			Category:    strings.TrimSpace(req.Category),
			Tags:        models.StringList(req.Tags),
			Status:      models.StatusDraft,
			Version:     1,
			IsPublic:    req.IsPublic,
			CreatorID:   claims.Subject,
			AssigneeID:  req.AssigneeID,
		}
		if err := db.Create(&doc).Error; err != nil {
			lg.Errorw("document create failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to create document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     "DOCUMENT_CREATED",
			EntityType: "Document",
			EntityID:   doc.ID,
			UserID:     &uid,
			Details:    map[string]any{"title": doc.Title, "category": doc.Category},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusCreated, doc)
	}
}

func GetDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var doc models.Document
		err := db.Preload("Creator").Preload("Assignee").
			Preload("Approvals").Preload("Approvals.Approver").
			First(&doc, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		if !canSeeDocument(auth.FromContext(r.Context()), &doc) {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
		respondJSON(w, http.StatusOK, doc)
	}
}

type updateDocumentReq struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Content     *string    `json:"content"`
	Category    *string    `json:"category"`
	Tags        *[]string  `json:"tags"`
	IsPublic    *bool      `json:"isPublic"`
	AssigneeID  *string    `json:"assigneeId"`
	Status      *string    `json:"status"`
	Version     *int       `json:"version"`
	PublishedAt *time.Time `json:"publishedAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func UpdateDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req updateDocumentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var doc models.Document
		if err := db.First(&doc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		claims := auth.FromContext(r.Context())
		if !canModifyDocument(claims, &doc) {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
		if req.Title != nil {
			if strings.TrimSpace(*req.Title) == "" {
				respondError(w, http.StatusBadRequest, "title cannot be empty")
				return
			}
			doc.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			doc.Description = *req.Description
		}
		if req.Content != nil {
			doc.Content = *req.Content
		}
		if req.Category != nil {
			doc.Category = *req.Category
		}
		if req.Tags != nil {
			doc.Tags = models.StringList(*req.Tags)
		}
		if req.IsPublic != nil {
			doc.IsPublic = *req.IsPublic
		}
		if req.AssigneeID != nil {
			doc.AssigneeID = req.AssigneeID
		}
		if req.Status != nil {
			// No transition table: any known status is accepted.
			st, ok := models.ParseDocumentStatus(*req.Status)
			if !ok {
				respondError(w, http.StatusBadRequest, "invalid status")
				return
			}
			doc.Status = st
		}
		if req.Version != nil {
			doc.Version = *req.Version
		}
		if req.PublishedAt != nil {
			doc.PublishedAt = req.PublishedAt
		}
		if req.ExpiresAt != nil {
			doc.ExpiresAt = req.ExpiresAt
		}
		doc.UpdatedAt = time.Now()
		if err := db.Save(&doc).Error; err != nil {
			lg.Errorw("document update failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     "DOCUMENT_UPDATED",
			EntityType: "Document",
			EntityID:   doc.ID,
			UserID:     &uid,
			Details:    map[string]any{"title": doc.Title, "status": string(doc.Status)},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, doc)
	}
}

func DeleteDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var doc models.Document
		if err := db.First(&doc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		claims := auth.FromContext(r.Context())
		if !canModifyDocument(claims, &doc) {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
		if err := db.Delete(&models.Document{}, "id = ?", id).Error; err != nil {
			lg.Errorw("document delete failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to delete document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     "DOCUMENT_DELETED",
			EntityType: "Document",
			EntityID:   id,
			UserID:     &uid,
			Details:    map[string]any{"title": doc.Title},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

type approveDocumentReq struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

// ApproveDocument records one approval decision for the current review
// cycle and moves the document status accordingly.
func ApproveDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req approveDocumentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		status := models.ApprovalStatus(req.Status)
		if status != models.ApprovalApproved && status != models.ApprovalRejected {
			respondError(w, http.StatusBadRequest, "status must be APPROVED or REJECTED")
			return
		}
		var doc models.Document
		if err := db.First(&doc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		claims := auth.FromContext(r.Context())
		approval := models.DocumentApproval{
			DocumentID: doc.ID,
			ApproverID: claims.Subject,
			Status:     status,
			Comments:   req.Comments,
		}
		if err := db.Create(&approval).Error; err != nil {
			lg.Errorw("approval create failed", "document_id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to record approval")
			return
		}
		action := "DOCUMENT_APPROVED"
		if status == models.ApprovalApproved {
			doc.Status = models.StatusApproved
		} else {
			doc.Status = models.StatusDraft
			action = "DOCUMENT_REJECTED"
		}
		doc.UpdatedAt = time.Now()
		if err := db.Save(&doc).Error; err != nil {
			lg.Errorw("document status update failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     action,
			EntityType: "Document",
			EntityID:   doc.ID,
			UserID:     &uid,
			Details:    map[string]any{"title": doc.Title, "comments": req.Comments},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusCreated, approval)
	}
}
