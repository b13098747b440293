package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/audit"
	"isodocs/internal/auth"
	"isodocs/internal/models"
	"isodocs/internal/upload"
)

const maxUploadMemory = 32 << 20

// UploadFiles attaches one or more files to a document. Every file is
// validated before the first byte is written, so a rejected file leaves
// nothing on disk.
func UploadFiles(db *gorm.DB, lg *zap.SugaredLogger, store *upload.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		docID := r.FormValue("documentId")
		if docID == "" {
			respondError(w, http.StatusBadRequest, "documentId required")
			return
		}
		files := r.MultipartForm.File["files"]
		if len(files) == 0 {
			respondError(w, http.StatusBadRequest, "no files provided")
			return
		}
		var doc models.Document
		if err := db.First(&doc, "id = ?", docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", docID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		claims := auth.FromContext(r.Context())
		if !canModifyDocument(claims, &doc) {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
		saved, err := store.Save(claims.Subject, doc.ID, files)
		if err != nil {
			if errors.Is(err, upload.ErrTypeNotAllowed) || errors.Is(err, upload.ErrTooLarge) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			lg.Errorw("file save failed", "document_id", docID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to store files")
			return
		}
		// The document's attachment fields track the most recent file.
		last := saved[len(saved)-1]
		doc.FileName = &last.OriginalName
		doc.FileSize = &last.Size
		doc.MimeType = &last.MimeType
		doc.FileURL = &last.URL
		doc.UpdatedAt = time.Now()
		if err := db.Save(&doc).Error; err != nil {
			lg.Errorw("document attachment update failed", "id", docID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		for _, f := range saved {
			audit.Record(db, lg, audit.Entry{
				Action:     "FILE_UPLOADED",
				EntityType: "Document",
				EntityID:   doc.ID,
				UserID:     &uid,
				Details:    map[string]any{"fileName": f.OriginalName, "fileSize": f.Size, "fileType": f.MimeType},
				IPAddress:  ip,
				UserAgent:  ua,
			})
		}
		respondJSON(w, http.StatusOK, map[string]any{"message": "files uploaded", "files": saved})
	}
}

// DeleteFile detaches a stored file from a document and removes it from disk.
func DeleteFile(db *gorm.DB, lg *zap.SugaredLogger, store *upload.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := r.URL.Query().Get("documentId")
		filename := r.URL.Query().Get("filename")
		if docID == "" || filename == "" {
			respondError(w, http.StatusBadRequest, "documentId and filename required")
			return
		}
		var doc models.Document
		if err := db.First(&doc, "id = ?", docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "document not found")
				return
			}
			lg.Errorw("document fetch failed", "id", docID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch document")
			return
		}
		claims := auth.FromContext(r.Context())
		if !canModifyDocument(claims, &doc) {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
		if err := store.Remove(claims.Subject, doc.ID, filename); err != nil {
			lg.Errorw("file remove failed", "document_id", docID, "filename", filename, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to remove file")
			return
		}
		doc.FileName = nil
		doc.FileSize = nil
		doc.MimeType = nil
		doc.FileURL = nil
		doc.UpdatedAt = time.Now()
		if err := db.Save(&doc).Error; err != nil {
			lg.Errorw("document attachment clear failed", "id", docID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update document")
			return
		}
		ip, ua := audit.RequestMeta(r)
		uid := claims.Subject
		audit.Record(db, lg, audit.Entry{
			Action:     "FILE_DELETED",
			EntityType: "Document",
			EntityID:   doc.ID,
			UserID:     &uid,
			Details:    map[string]any{"fileName": filename},
			IPAddress:  ip,
			UserAgent:  ua,
		})
		respondJSON(w, http.StatusOK, map[string]any{"message": "file deleted"})
	}
}
