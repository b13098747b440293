package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/auth"
	"isodocs/internal/httpserver/handlers"
	"isodocs/internal/rbac"
	"isodocs/internal/upload"
)

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, uploads *upload.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/api/login", handlers.Login(db, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth())
		protected.Get("/api/me", handlers.Me(db, lg))

		protected.Route("/api/documents", func(docs chi.Router) {
			docs.With(auth.RequirePermission(rbac.PermDocumentView)).Get("/", handlers.ListDocuments(db, lg))
			docs.With(auth.RequirePermission(rbac.PermDocumentCreate)).Post("/", handlers.CreateDocument(db, lg))
			docs.With(auth.RequirePermission(rbac.PermDocumentView)).Get("/{id}", handlers.GetDocument(db, lg))
			docs.With(auth.RequirePermission(rbac.PermDocumentEdit)).Put("/{id}", handlers.UpdateDocument(db, lg))
			docs.With(auth.RequirePermission(rbac.PermDocumentDelete)).Delete("/{id}", handlers.DeleteDocument(db, lg))
			docs.With(auth.RequirePermission(rbac.PermDocumentApprove)).Post("/{id}/approve", handlers.ApproveDocument(db, lg))
		})

		protected.Post("/api/upload", handlers.UploadFiles(db, lg, uploads))
		protected.Delete("/api/upload", handlers.DeleteFile(db, lg, uploads))

		protected.With(auth.RequirePermission(rbac.PermAuditView)).Get("/api/audit", handlers.ListAuditLogs(db, lg))
		protected.Post("/api/audit", handlers.CreateAuditLog(db, lg))

		protected.Route("/api/users", func(users chi.Router) {
			users.With(auth.RequirePermission(rbac.PermUserView)).Get("/", handlers.ListUsers(db, lg))
			users.With(auth.RequirePermission(rbac.PermUserView)).Get("/{id}", handlers.GetUser(db, lg))
			users.With(auth.RequirePermission(rbac.PermUserUpdate)).Put("/{id}", handlers.UpdateUser(db, lg))
			users.With(auth.RequirePermission(rbac.PermUserDelete)).Delete("/{id}", handlers.DeleteUser(db, lg))
		})

		protected.Get("/api/user/preferences", handlers.GetPreferences(db, lg))
		protected.Put("/api/user/preferences", handlers.UpdatePreferences(db, lg))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
