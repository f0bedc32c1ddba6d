package governance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
)

const (
	staleAfter        = 7 * 24 * time.Hour
	noDataPenalty     = 50
	stalePenalty      = 30
	auditPenalty      = 20
	highTrust         = 80
	mediumTrust       = 50
	monitorWindow     = 7 * 24 * time.Hour
	monitorSampleSize = 20
)

// Trust is the system trust score shown next to a forecast.
type Trust struct {
	Score     int             `json:"trust_score"`
	Level     model.RiskLevel `json:"level"`
	Penalties []string        `json:"penalties"`
}

// TrustScore starts at 100 and applies penalties for missing or stale risk
// data and for a failing audit heartbeat.
func TrustScore(lastSnapshot *time.Time, integrity IntegrityStatus, now time.Time) Trust {
	score := 100
	penalties := []string{}
	switch {
	case lastSnapshot == nil:
		score -= noDataPenalty
		penalties = append(penalties, "No historical data available.")
	case lastSnapshot.Before(now.Add(-staleAfter)):
		score -= stalePenalty
		penalties = append(penalties, "Risk data is stale (> 7 days old).")
	}
	if !integrity.Healthy() {
		score -= auditPenalty
		msg := integrity.Message
		if msg == "" {
			msg = "Unknown issue"
		}
		penalties = append(penalties, "Audit System Issue: "+msg)
	}

	level := model.RiskLow
	switch {
	case score >= highTrust:
		level = model.RiskHigh
	case score >= mediumTrust:
		level = model.RiskMedium
	}
	if score < 0 {
		score = 0
	}
	return Trust{Score: score, Level: level, Penalties: penalties}
}

// Model health statuses.
const (
	ModelHealthy = "HEALTHY"
	ModelFrozen  = "FROZEN"
	ModelCold    = "COLD"
	ModelWarning = "WARNING"
)

// ModelStatus reports whether recent predictions still vary.
type ModelStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MLLogReader returns recent prediction logs.
type MLLogReader interface {
	RecentMLRiskLogs(ctx context.Context, since time.Time, limit int) ([]model.MLRiskLog, error)
}

// ModelHealth classifies a sample of prediction logs: no logs or a single one
// is COLD, a zero sample deviation is FROZEN and anything else is HEALTHY.
func ModelHealth(logs []model.MLRiskLog) ModelStatus {
	if len(logs) == 0 {
		return ModelStatus{Status: ModelCold, Message: "No recent predictions."}
	}
	if len(logs) < 2 {
		return ModelStatus{Status: ModelCold, Message: "Insufficient data for variance check."}
	}
	var sum float64
	for _, l := range logs {
		sum += float64(l.FinalRisk)
	}
	avg := sum / float64(len(logs))
	var ss float64
	for _, l := range logs {
		d := float64(l.FinalRisk) - avg
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(logs)-1))
	if sd == 0 {
		return ModelStatus{Status: ModelFrozen, Message: "Model outputs are static (frozen)."}
	}
	return ModelStatus{Status: ModelHealthy, Message: fmt.Sprintf("Variance: %.2f", sd)}
}

// MonitorModel reads up to 20 logs from the last 7 days and classifies them.
// A read failure yields WARNING.
func MonitorModel(ctx context.Context, r MLLogReader, now time.Time) ModelStatus {
	logs, err := r.RecentMLRiskLogs(ctx, now.Add(-monitorWindow), monitorSampleSize)
	if err != nil {
		return ModelStatus{Status: ModelWarning, Message: "Model log inaccessible."}
	}
	return ModelHealth(logs)
}
