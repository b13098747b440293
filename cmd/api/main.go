package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"isodocs/internal/auth"
	"isodocs/internal/httpserver"
	"isodocs/internal/logger"
	"isodocs/internal/models"
	"isodocs/internal/rbac"
	"isodocs/internal/upload"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.DocumentApproval{},
		&models.AuditLog{},
		&models.UserPreference{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedUsers(db, lg)
	if os.Getenv("SEED_DEMO_DATA") == "1" {
		seedDemoDocuments(db, lg)
	}
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	router := httpserver.NewRouter(db, lg, upload.NewStore(uploadDir))
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	lg.Infow("listening", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func seedUsers(db *gorm.DB, lg *zap.SugaredLogger) {
	seeds := []struct {
		email      string
		name       string
		password   string
		role       rbac.Role
		department string
	}{
		{"admin@iso-compliance.com", "System Administrator", "admin123", rbac.RoleAdmin, "IT"},
		{"manager@iso-compliance.com", "Compliance Manager", "manager123", rbac.RoleManager, "Compliance"},
		{"employee@iso-compliance.com", "John Employee", "employee123", rbac.RoleEmployee, "Operations"},
		{"auditor@iso-compliance.com", "Internal Auditor", "auditor123", rbac.RoleAuditor, "Audit"},
	}
	for _, s := range seeds {
		var count int64
		db.Model(&models.User{}).Where("LOWER(email) = ?", s.email).Count(&count)
		if count > 0 {
			continue
		}
		hash, err := auth.HashPassword(s.password)
		if err != nil {
			lg.Errorw("seed hash failed", "email", s.email, "error", err)
			continue
		}
		u := models.User{
			Email:        s.email,
			Name:         s.name,
			Role:         s.role,
			Department:   s.department,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := db.Create(&u).Error; err != nil {
			lg.Errorw("seed user failed", "email", s.email, "error", err)
			continue
		}
		lg.Infow("seeded user", "email", s.email, "role", s.role)
	}
}

func seedDemoDocuments(db *gorm.DB, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.Document{}).Count(&count)
	if count > 0 {
		return
	}
	var admin, manager, employee models.User
	if db.First(&admin, "email = ?", "admin@iso-compliance.com").Error != nil ||
		db.First(&manager, "email = ?", "manager@iso-compliance.com").Error != nil ||
		db.First(&employee, "email = ?", "employee@iso-compliance.com").Error != nil {
		return
	}
	now := time.Now()
	policy := models.Document{
		Title:       "Information Security Policy",
		Description: "Comprehensive information security policy for the organization",
		Content:     "This document outlines the information security policies and procedures...",
		Category:    "Policies",
		Tags:        models.StringList{"security", "policy", "ISO27001"},
		Status:      models.StatusPublished,
		Version:     1,
		IsPublic:    true,
		CreatorID:   admin.ID,
		PublishedAt: &now,
	}
	procedure := models.Document{
		Title:       "Risk Assessment Procedure",
		Description: "Standard procedure for conducting risk assessments",
		Content:     "This procedure defines the methodology for identifying and assessing risks...",
		Category:    "Procedures",
		Tags:        models.StringList{"risk", "assessment", "procedure"},
		Status:      models.StatusReview,
		Version:     1,
		CreatorID:   manager.ID,
		AssigneeID:  &employee.ID,
	}
	if err := db.Create(&policy).Error; err != nil {
		lg.Errorw("seed document failed", "title", policy.Title, "error", err)
		return
	}
	if err := db.Create(&procedure).Error; err != nil {
		lg.Errorw("seed document failed", "title", procedure.Title, "error", err)
		return
	}
	approval := models.DocumentApproval{
		DocumentID: procedure.ID,
		ApproverID: admin.ID,
		Status:     models.ApprovalPending,
		Comments:   "Please review the risk assessment procedure",
	}
	if err := db.Create(&approval).Error; err != nil {
		lg.Errorw("seed approval failed", "error", err)
	}
	lg.Infow("seeded demo documents")
}
