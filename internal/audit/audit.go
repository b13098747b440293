// Package audit appends and reports on the append-only activity log. Rows
// are only ever inserted; nothing in this package updates or deletes them.
package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isodocs/internal/models"
)

// Entry describes one mutating action to be recorded.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     *string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

// Record appends one immutable row. Call it only after the primary mutation
// has committed. Append failures are logged server-side and swallowed; the
// mutation is the durability boundary, the log is best effort.
func Record(db *gorm.DB, lg *zap.SugaredLogger, e Entry) {
	row := models.AuditLog{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			lg.Errorw("audit details marshal failed", "action", e.Action, "error", err)
		} else {
			row.Details = models.JSONB(b)
		}
	}
	if err := db.Create(&row).Error; err != nil {
		lg.Errorw("audit append failed",
			"action", e.Action, "entity_type", e.EntityType, "entity_id", e.EntityID, "error", err)
	}
}

// RequestMeta extracts the client address and user agent for an Entry.
// Behind the RealIP middleware RemoteAddr is already the client IP.
func RequestMeta(r *http.Request) (ip, userAgent string) {
	ip = r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}
	return ip, r.UserAgent()
}

// Filters narrows a log query. Zero values match everything.
type Filters struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Start      *time.Time
	End        *time.Time
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Query returns one page of log entries, newest first, plus the total count
// for the filter set.
func Query(db *gorm.DB, f Filters, page, limit int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	q := db.Model(&models.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Start != nil {
		q = q.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("created_at <= ?", *f.End)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AuditLog
	err := q.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error
	return rows, total, err
}

// Breakdown is one bucket of a top-N aggregation.
type Breakdown struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Summary aggregates the log by time window and by top-N dimensions.
type Summary struct {
	TotalLogs           int64       `json:"totalLogs"`
	TodayLogs           int64       `json:"todayLogs"`
	ThisWeekLogs        int64       `json:"thisWeekLogs"`
	ThisMonthLogs       int64       `json:"thisMonthLogs"`
	ActionBreakdown     []Breakdown `json:"actionBreakdown"`
	UserBreakdown       []Breakdown `json:"userBreakdown"`
	EntityTypeBreakdown []Breakdown `json:"entityTypeBreakdown"`
}

const breakdownLimit = 10

// Summarize runs the independent read-only aggregates concurrently and
// joins the results.
func Summarize(db *gorm.DB) (Summary, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	var s Summary
	tasks := []func() error{
		func() error { return db.Model(&models.AuditLog{}).Count(&s.TotalLogs).Error },
		func() error {
			return db.Model(&models.AuditLog{}).Where("created_at >= ?", midnight).Count(&s.TodayLogs).Error
		},
		func() error {
			return db.Model(&models.AuditLog{}).Where("created_at >= ?", weekAgo).Count(&s.ThisWeekLogs).Error
		},
		func() error {
			return db.Model(&models.AuditLog{}).Where("created_at >= ?", monthAgo).Count(&s.ThisMonthLogs).Error
		},
		func() error { return groupBy(db, "action", &s.ActionBreakdown) },
		func() error { return groupBy(db, "COALESCE(user_id, '')", &s.UserBreakdown) },
		func() error { return groupBy(db, "entity_type", &s.EntityTypeBreakdown) },
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func() error) {
			defer wg.Done()
			errs[i] = task()
		}(i, task)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return Summary{}, err
		}
	}
	return s, nil
}

func groupBy(db *gorm.DB, expr string, out *[]Breakdown) error {
	return db.Model(&models.AuditLog{}).
		Select(expr + " AS key, COUNT(*) AS count").
		Group(expr).
		Order("count DESC").
		Limit(breakdownLimit).
		Scan(out).Error
}
