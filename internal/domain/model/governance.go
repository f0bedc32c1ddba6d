package model

import "time"

// Severity of a governance log entry.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Governance event types.
const (
	EventRiskSpike      = "RISK_SPIKE"
	EventRetention      = "RETENTION_PURGE"
	EventRiskLevelShift = "RISK_LEVEL_CHANGE"
)

// GovernanceLogEntry is an append-only audit record. Checksum seals the
// other fields so later edits are detectable.
type GovernanceLogEntry struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Severity  Severity  `json:"severity"`
	Details   string    `json:"details"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum"`
}

// TeamBenchmark is a transient aggregate over the latest snapshot per member.
type TeamBenchmark struct {
	AvgRisk      int       `json:"avg_risk"`
	Variance     int       `json:"variance"`
	BurnoutScore int       `json:"burnout_score"`
	Level        RiskLevel `json:"level"`
	MemberCount  int       `json:"member_count"`
}
