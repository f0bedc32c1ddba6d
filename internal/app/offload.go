package service

import (
	"context"
	"time"

	"github.com/okian/careerpulse/internal/adapters/mq/worker"
	"github.com/okian/careerpulse/internal/adapters/repository"
	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/model"
)

// offloadStore runs every blocking store call on the worker pool and waits
// for its result. It satisfies the governance reader and writer interfaces.
type offloadStore struct {
	store repository.Store
	pool  *worker.Pool
}

var (
	_ governance.SnapshotReader = (*offloadStore)(nil)
	_ governance.LogStore       = (*offloadStore)(nil)
	_ governance.MemoryWriter   = (*offloadStore)(nil)
	_ governance.MLLogReader    = (*offloadStore)(nil)
)

// call submits fn and hands its value back only once the job has finished.
func call[T any](ctx context.Context, p *worker.Pool, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	res := make(chan T, 1)
	err := p.Submit(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		res <- v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-res, nil
}

func (o *offloadStore) exec(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return o.pool.Submit(ctx, name, fn)
}

func (o *offloadStore) AppendRiskSnapshot(ctx context.Context, s model.RiskSnapshot) error {
	return o.exec(ctx, "append_risk_snapshot", func(ctx context.Context) error {
		return o.store.AppendRiskSnapshot(ctx, s)
	})
}

func (o *offloadStore) LatestRiskSnapshot(ctx context.Context, userID string) (model.RiskSnapshot, error) {
	return call(ctx, o.pool, "latest_risk_snapshot", func(ctx context.Context) (model.RiskSnapshot, error) {
		return o.store.LatestRiskSnapshot(ctx, userID)
	})
}

func (o *offloadStore) RiskHistory(ctx context.Context, userID string, limit int) ([]model.RiskSnapshot, error) {
	return call(ctx, o.pool, "risk_history", func(ctx context.Context) ([]model.RiskSnapshot, error) {
		return o.store.RiskHistory(ctx, userID, limit)
	})
}

func (o *offloadStore) TeamRiskSnapshots(ctx context.Context, f repository.TeamFilter) ([]model.RiskSnapshot, error) {
	return call(ctx, o.pool, "team_risk_snapshots", func(ctx context.Context) ([]model.RiskSnapshot, error) {
		return o.store.TeamRiskSnapshots(ctx, f)
	})
}

func (o *offloadStore) AppendSkillSnapshots(ctx context.Context, snaps []model.SkillSnapshot) error {
	return o.exec(ctx, "append_skill_snapshots", func(ctx context.Context) error {
		return o.store.AppendSkillSnapshots(ctx, snaps)
	})
}

func (o *offloadStore) UpsertWeeklyPlan(ctx context.Context, p model.WeeklyPlan) error {
	return o.exec(ctx, "upsert_weekly_plan", func(ctx context.Context) error {
		return o.store.UpsertWeeklyPlan(ctx, p)
	})
}

func (o *offloadStore) WeeklyPlan(ctx context.Context, userID, weekID string) (model.WeeklyPlan, error) {
	return call(ctx, o.pool, "weekly_plan", func(ctx context.Context) (model.WeeklyPlan, error) {
		return o.store.WeeklyPlan(ctx, userID, weekID)
	})
}

func (o *offloadStore) AppendGovernanceLog(ctx context.Context, e model.GovernanceLogEntry) error {
	return o.exec(ctx, "append_governance_log", func(ctx context.Context) error {
		return o.store.AppendGovernanceLog(ctx, e)
	})
}

func (o *offloadStore) GovernanceLogs(ctx context.Context, f governance.LogFilter) ([]model.GovernanceLogEntry, error) {
	return call(ctx, o.pool, "governance_logs", func(ctx context.Context) ([]model.GovernanceLogEntry, error) {
		return o.store.GovernanceLogs(ctx, f)
	})
}

func (o *offloadStore) DeleteGovernanceLogsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return call(ctx, o.pool, "delete_governance_logs", func(ctx context.Context) (int, error) {
		return o.store.DeleteGovernanceLogsBefore(ctx, cutoff)
	})
}

func (o *offloadStore) AppendMLRiskLog(ctx context.Context, l model.MLRiskLog) error {
	return o.exec(ctx, "append_ml_risk_log", func(ctx context.Context) error {
		return o.store.AppendMLRiskLog(ctx, l)
	})
}

func (o *offloadStore) RecentMLRiskLogs(ctx context.Context, since time.Time, limit int) ([]model.MLRiskLog, error) {
	return call(ctx, o.pool, "recent_ml_risk_logs", func(ctx context.Context) ([]model.MLRiskLog, error) {
		return o.store.RecentMLRiskLogs(ctx, since, limit)
	})
}

func (o *offloadStore) AppendMentorMemory(ctx context.Context, m model.MentorMemory) error {
	return o.exec(ctx, "append_mentor_memory", func(ctx context.Context) error {
		return o.store.AppendMentorMemory(ctx, m)
	})
}

func (o *offloadStore) MentorMemories(ctx context.Context, userID string, limit int) ([]model.MentorMemory, error) {
	return call(ctx, o.pool, "mentor_memories", func(ctx context.Context) ([]model.MentorMemory, error) {
		return o.store.MentorMemories(ctx, userID, limit)
	})
}

func (o *offloadStore) UpsertProfile(ctx context.Context, p model.Profile) error {
	return o.exec(ctx, "upsert_profile", func(ctx context.Context) error {
		return o.store.UpsertProfile(ctx, p)
	})
}

func (o *offloadStore) Profile(ctx context.Context, userID string) (model.Profile, error) {
	return call(ctx, o.pool, "profile", func(ctx context.Context) (model.Profile, error) {
		return o.store.Profile(ctx, userID)
	})
}
