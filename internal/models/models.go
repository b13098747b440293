package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"isodocs/internal/rbac"
)

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	Role         rbac.Role `gorm:"not null;default:'EMPLOYEE'" json:"role"`
	Department   string    `json:"department"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusReview    DocumentStatus = "REVIEW"
	StatusApproved  DocumentStatus = "APPROVED"
	StatusPublished DocumentStatus = "PUBLISHED"
	StatusArchived  DocumentStatus = "ARCHIVED"
)

// ParseDocumentStatus validates an inbound status string. No transition
// table is enforced between statuses.
func ParseDocumentStatus(s string) (DocumentStatus, bool) {
	switch DocumentStatus(s) {
	case StatusDraft, StatusReview, StatusApproved, StatusPublished, StatusArchived:
		return DocumentStatus(s), true
	}
	return "", false
}

// Document is a controlled document. CreatorID is immutable after creation.
type Document struct {
	ID          string             `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string             `gorm:"not null" json:"title"`
	Description string             `json:"description"`
	Content     string             `gorm:"type:text" json:"content"`
	Category    string             `gorm:"not null;index" json:"category"`
	Tags        StringList         `gorm:"type:jsonb" json:"tags"`
	Status      DocumentStatus     `gorm:"not null;default:'DRAFT';index" json:"status"`
	Version     int                `gorm:"not null;default:1" json:"version"`
	IsPublic    bool               `gorm:"not null;default:false" json:"isPublic"`
	CreatorID   string             `gorm:"type:uuid;not null;index" json:"creatorId"`
	Creator     *User              `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AssigneeID  *string            `gorm:"type:uuid" json:"assigneeId,omitempty"`
	Assignee    *User              `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Approvals   []DocumentApproval `gorm:"foreignKey:DocumentID" json:"approvals,omitempty"`
	FileName    *string            `json:"fileName,omitempty"`
	FileSize    *int64             `json:"fileSize,omitempty"`
	MimeType    *string            `json:"mimeType,omitempty"`
	FileURL     *string            `json:"fileUrl,omitempty"`
	PublishedAt *time.Time         `json:"publishedAt,omitempty"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type DocumentApproval struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID string         `gorm:"type:uuid;not null;index" json:"documentId"`
	ApproverID string         `gorm:"type:uuid;not null" json:"approverId"`
	Approver   *User          `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status     ApprovalStatus `gorm:"not null;default:'PENDING'" json:"status"`
	Comments   string         `json:"comments"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (a *DocumentApproval) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AuditLog is append-only. UserID is a weak reference: entries keep the id
// after the user is deleted, so no foreign key association is declared.
type AuditLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Action     string    `gorm:"not null;index" json:"action"`
	EntityType string    `gorm:"not null;index" json:"entityType"`
	EntityID   string    `gorm:"not null;index" json:"entityId"`
	UserID     *string   `gorm:"type:uuid;index" json:"userId,omitempty"`
	Details    JSONB     `gorm:"type:jsonb" json:"details"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

type UserPreference struct {
	UserID             string    `gorm:"type:uuid;primaryKey" json:"userId"`
	EmailNotifications bool      `json:"emailNotifications"`
	PushNotifications  bool      `json:"pushNotifications"`
	Theme              string    `gorm:"not null;default:'light'" json:"theme"`
	Language           string    `gorm:"not null;default:'en'" json:"language"`
	DocumentUpdates    bool      `json:"documentUpdates"`
	AuditReminders     bool      `json:"auditReminders"`
	ComplianceAlerts   bool      `json:"complianceAlerts"`
	WeeklyReports      bool      `json:"weeklyReports"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// DefaultPreferences are served until a user writes their own row.
func DefaultPreferences(userID string) UserPreference {
	return UserPreference{
		UserID:             userID,
		EmailNotifications: true,
		PushNotifications:  false,
		Theme:              "light",
		Language:           "en",
		DocumentUpdates:    true,
		AuditReminders:     true,
		ComplianceAlerts:   true,
		WeeklyReports:      false,
	}
}
