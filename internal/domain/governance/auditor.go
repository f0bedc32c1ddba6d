// Package governance audits risk history: spike detection, level change
// alerts, retention and integrity checks.
package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	// DefaultSpikeThreshold is the smallest risk increase logged as a spike.
	DefaultSpikeThreshold = 15
	// DefaultRetentionDays is how long governance entries are kept.
	DefaultRetentionDays = 90

	heartbeatWindow = 24 * time.Hour
	alertCategory   = "ALERT"
	alertTypeSpike  = "SPIKE"
)

// SnapshotReader returns a user's most recent risk snapshot or
// model.ErrNotFound.
type SnapshotReader interface {
	LatestRiskSnapshot(ctx context.Context, userID string) (model.RiskSnapshot, error)
}

// LogFilter selects governance entries. Zero fields match everything and a
// zero Limit means no limit.
type LogFilter struct {
	UserID string
	Since  time.Time
	Limit  int
}

// LogStore persists governance entries.
type LogStore interface {
	AppendGovernanceLog(ctx context.Context, e model.GovernanceLogEntry) error
	// GovernanceLogs returns matching entries, newest first.
	GovernanceLogs(ctx context.Context, f LogFilter) ([]model.GovernanceLogEntry, error)
	// DeleteGovernanceLogsBefore removes entries older than cutoff atomically.
	DeleteGovernanceLogsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryWriter stores mentor notes.
type MemoryWriter interface {
	AppendMentorMemory(ctx context.Context, m model.MentorMemory) error
}

// Alert describes a detected spike.
type Alert struct {
	Type     string                   `json:"type"`
	Level    model.Severity           `json:"level"`
	Delta    int                      `json:"delta"`
	Previous int                      `json:"previous"`
	Current  int                      `json:"current"`
	Entry    model.GovernanceLogEntry `json:"entry"`
}

// Auditor writes governance entries around each new risk snapshot.
type Auditor struct {
	snapshots     SnapshotReader
	logs          LogStore
	memory        MemoryWriter
	threshold     int
	retentionDays int
	now           func() time.Time
	logger        logger.Logger
}

// Option applies a configuration option to the Auditor.
type Option func(*Auditor)

// WithSpikeThreshold overrides the spike delta.
func WithSpikeThreshold(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.threshold = n
		}
	}
}

// WithRetentionDays overrides the default retention window.
func WithRetentionDays(days int) Option {
	return func(a *Auditor) {
		if days > 0 {
			a.retentionDays = days
		}
	}
}

// WithMemory enables level change alerts in mentor memory.
func WithMemory(m MemoryWriter) Option {
	return func(a *Auditor) { a.memory = m }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAuditor creates an Auditor.
func NewAuditor(snapshots SnapshotReader, logs LogStore, opts ...Option) *Auditor {
	a := &Auditor{
		snapshots:     snapshots,
		logs:          logs,
		threshold:     DefaultSpikeThreshold,
		retentionDays: DefaultRetentionDays,
		now:           time.Now,
		logger:        logger.Get().Named("governance"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RetentionDays returns the configured retention window.
func (a *Auditor) RetentionDays() int { return a.retentionDays }

// previous returns the latest stored snapshot, if any.
func (a *Auditor) previous(ctx context.Context, userID string) (model.RiskSnapshot, bool, error) {
	prev, err := a.snapshots.LatestRiskSnapshot(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.RiskSnapshot{}, false, nil
	}
	if err != nil {
		return model.RiskSnapshot{}, false, fmt.Errorf("read previous snapshot: %w", err)
	}
	return prev, true, nil
}

// CheckSpike compares newScore with the user's latest stored snapshot and must
// run before the new snapshot is appended. A rise of at least the threshold
// writes one CRITICAL entry; anything smaller writes nothing.
func (a *Auditor) CheckSpike(ctx context.Context, userID string, newScore int) (*Alert, error) {
	prev, ok, err := a.previous(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}
	delta := newScore - prev.RiskScore
	if delta < a.threshold {
		return nil, nil
	}

	details := fmt.Sprintf("Risk spiked by +%d%% (Old: %d, New: %d)", delta, prev.RiskScore, newScore)
	entry, err := a.Log(ctx, model.EventRiskSpike, model.SeverityCritical, details, userID)
	if err != nil {
		return nil, err
	}
	metrics.RecordRiskSpike()
	a.logger.Warn(ctx, "risk spike detected",
		logger.String("user_id", userID),
		logger.Int("previous", prev.RiskScore),
		logger.Int("current", newScore))
	return &Alert{
		Type:     alertTypeSpike,
		Level:    model.SeverityCritical,
		Delta:    delta,
		Previous: prev.RiskScore,
		Current:  newScore,
		Entry:    entry,
	}, nil
}

// LevelChange records a mentor alert when the banded level differs from the
// latest stored snapshot. It reports whether an alert was written.
func (a *Auditor) LevelChange(ctx context.Context, userID string, newLevel model.RiskLevel) (bool, error) {
	prev, ok, err := a.previous(ctx, userID)
	if err != nil || !ok || prev.RiskLevel == newLevel {
		return false, err
	}
	content := fmt.Sprintf("Career risk changed from %s to %s.", prev.RiskLevel, newLevel)
	if a.memory != nil {
		if err := a.memory.AppendMentorMemory(ctx, model.MentorMemory{
			UserID:     userID,
			Category:   alertCategory,
			Content:    content,
			RecordedAt: a.now().UTC(),
		}); err != nil {
			return false, fmt.Errorf("store level alert: %w", err)
		}
	}
	if _, err := a.Log(ctx, model.EventRiskLevelShift, model.SeverityInfo, content, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Log appends one sealed entry.
func (a *Auditor) Log(ctx context.Context, eventType string, severity model.Severity, details, userID string) (model.GovernanceLogEntry, error) {
	entry := Seal(model.GovernanceLogEntry{
		ID:        uuid.NewString(),
		EventType: eventType,
		Severity:  severity,
		Details:   details,
		UserID:    userID,
		Timestamp: a.now().UTC(),
	})
	if err := a.logs.AppendGovernanceLog(ctx, entry); err != nil {
		return model.GovernanceLogEntry{}, fmt.Errorf("append governance log: %w", err)
	}
	metrics.RecordGovernanceEntry(string(severity))
	return entry, nil
}

// Cleanup deletes entries older than days (the configured window when days is
// zero) and returns how many were removed.
func (a *Auditor) Cleanup(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("%d days: %w", days, ErrInvalidRetention)
	}
	if days == 0 {
		days = a.retentionDays
	}
	cutoff := a.now().UTC().AddDate(0, 0, -days)
	deleted, err := a.logs.DeleteGovernanceLogsBefore(ctx, cutoff)
	metrics.RecordRetention(deleted, err)
	if err != nil {
		a.logger.Error(ctx, "governance retention failed", logger.Int("days", days), logger.Error(err))
		return 0, fmt.Errorf("delete governance logs: %w", err)
	}
	a.logger.Info(ctx, "governance retention finished", logger.Int("days", days), logger.Int("deleted", deleted))
	if deleted > 0 {
		details := fmt.Sprintf("Deleted %d governance entries older than %d days", deleted, days)
		if _, err := a.Log(ctx, model.EventRetention, model.SeverityInfo, details, ""); err != nil {
			a.logger.Warn(ctx, "retention entry not recorded", logger.Error(err))
		}
	}
	return deleted, nil
}

// Integrity statuses.
const (
	StatusHealthy = "HEALTHY"
	StatusWarning = "WARNING"
)

// IntegrityStatus is the audit heartbeat.
type IntegrityStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Healthy reports whether the heartbeat passed.
func (s IntegrityStatus) Healthy() bool { return s.Status == StatusHealthy }

// Integrity is HEALTHY when at least one entry was written in the last 24h and
// every such entry still matches its checksum.
func (a *Auditor) Integrity(ctx context.Context) IntegrityStatus {
	entries, err := a.logs.GovernanceLogs(ctx, LogFilter{Since: a.now().UTC().Add(-heartbeatWindow)})
	if err != nil {
		a.logger.Warn(ctx, "governance log unreadable", logger.Error(err))
		return IntegrityStatus{Status: StatusWarning, Message: "Governance log inaccessible."}
	}
	if len(entries) == 0 {
		return IntegrityStatus{Status: StatusWarning, Message: "No governance logs in 24h."}
	}
	for _, e := range entries {
		if !Intact(e) {
			return IntegrityStatus{Status: StatusWarning, Message: fmt.Sprintf("Governance entry %s failed its checksum.", e.ID)}
		}
	}
	return IntegrityStatus{Status: StatusHealthy, Message: "System active."}
}

// Compliance summarizes a user's governance trail.
type Compliance struct {
	TotalEvents     int        `json:"total_events_logged"`
	LastActivity    *time.Time `json:"last_activity"`
	Status          string     `json:"status"`
	DataStatus      string     `json:"data_status"`
	RetentionPolicy string     `json:"retention_policy"`
}

// ComplianceSummary counts a user's entries and reports the latest one.
func (a *Auditor) ComplianceSummary(ctx context.Context, userID string) (Compliance, error) {
	entries, err := a.logs.GovernanceLogs(ctx, LogFilter{UserID: userID})
	if err != nil {
		return Compliance{}, fmt.Errorf("read governance logs: %w", err)
	}
	c := Compliance{
		TotalEvents:     len(entries),
		Status:          "IDLE",
		DataStatus:      "SECURE",
		RetentionPolicy: fmt.Sprintf("%d Days", a.retentionDays),
	}
	if len(entries) > 0 {
		last := entries[0].Timestamp
		c.LastActivity = &last
		c.Status = "ACTIVE"
	}
	return c, nil
}
