package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/model"
)

type planKey struct{ userID, weekID string }

// MemoryStore is a Store kept in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	snapshots []model.RiskSnapshot
	skills    []model.SkillSnapshot
	plans     map[planKey]model.WeeklyPlan
	logs      []model.GovernanceLogEntry
	mlLogs    []model.MLRiskLog
	memories  []model.MentorMemory
	profiles  map[string]model.Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:    make(map[planKey]model.WeeklyPlan),
		profiles: make(map[string]model.Profile),
	}
}

// newestFirst returns the indexes of items from last inserted to first,
// stably ordered by time desc.
func newestFirst(n int, at func(i int) time.Time) []int {
	idx := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return at(idx[a]).After(at(idx[b])) })
	return idx
}

func capped(n, limit int) int {
	if limit > 0 && limit < n {
		return limit
	}
	return n
}

func (m *MemoryStore) writable() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

// AppendRiskSnapshot stores snap.
func (m *MemoryStore) AppendRiskSnapshot(_ context.Context, snap model.RiskSnapshot) (err error) {
	defer observe("append_risk_snapshot", time.Now(), &err)
	if err = checkUser(snap.UserID); err != nil {
		return err
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err = m.writable(); err != nil {
		return err
	}
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *MemoryStore) userSnapshots(userID string) []model.RiskSnapshot {
	var own []model.RiskSnapshot
	for _, s := range m.snapshots {
		if s.UserID == userID {
			own = append(own, s)
		}
	}
	idx := newestFirst(len(own), func(i int) time.Time { return own[i].RecordedAt })
	out := make([]model.RiskSnapshot, 0, len(own))
	for _, i := range idx {
		out = append(out, own[i])
	}
	return out
}

// LatestRiskSnapshot returns the newest snapshot of userID.
func (m *MemoryStore) LatestRiskSnapshot(_ context.Context, userID string) (model.RiskSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	own := m.userSnapshots(userID)
	if len(own) == 0 {
		return model.RiskSnapshot{}, fmt.Errorf("risk snapshot for %s: %w", userID, ErrNotFound)
	}
	return own[0], nil
}

// RiskHistory returns snapshots newest first.
func (m *MemoryStore) RiskHistory(_ context.Context, userID string, limit int) ([]model.RiskSnapshot, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	own := m.userSnapshots(userID)
	return own[:capped(len(own), limit)], nil
}

// TeamRiskSnapshots returns each user's latest snapshot when it matches f.
func (m *MemoryStore) TeamRiskSnapshots(_ context.Context, f TeamFilter) ([]model.RiskSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := map[string]struct{}{}
	for _, s := range m.snapshots {
		users[s.UserID] = struct{}{}
	}
	out := []model.RiskSnapshot{}
	for u := range users {
		latest := m.userSnapshots(u)[0]
		if f.Scope != "" && latest.Scope != f.Scope {
			continue
		}
		if !f.Since.IsZero() && latest.RecordedAt.Before(f.Since) {
			continue
		}
		out = append(out, latest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// AppendSkillSnapshots stores all rows or none.
func (m *MemoryStore) AppendSkillSnapshots(_ context.Context, snaps []model.SkillSnapshot) error {
	for _, s := range snaps {
		if err := checkUser(s.UserID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.skills = append(m.skills, snaps...)
	return nil
}

// SkillSnapshots returns every stored skill observation of userID in
// insertion order.
func (m *MemoryStore) SkillSnapshots(userID string) []model.SkillSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SkillSnapshot
	for _, s := range m.skills {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// UpsertWeeklyPlan replaces an existing plan for the same week, keeping its
// creation time.
func (m *MemoryStore) UpsertWeeklyPlan(_ context.Context, p model.WeeklyPlan) error {
	if err := checkUser(p.UserID); err != nil {
		return err
	}
	if p.WeekID == "" {
		return fmt.Errorf("empty week id: %w", ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	key := planKey{p.UserID, p.WeekID}
	stored := p.Clone()
	if prev, ok := m.plans[key]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	m.plans[key] = stored
	return nil
}

// WeeklyPlan returns a copy of the stored plan.
func (m *MemoryStore) WeeklyPlan(_ context.Context, userID, weekID string) (model.WeeklyPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[planKey{userID, weekID}]
	if !ok {
		return model.WeeklyPlan{}, fmt.Errorf("weekly plan %s/%s: %w", userID, weekID, ErrNotFound)
	}
	return p.Clone(), nil
}

// AppendGovernanceLog stores an audit entry.
func (m *MemoryStore) AppendGovernanceLog(_ context.Context, e model.GovernanceLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.logs = append(m.logs, e)
	return nil
}

// GovernanceLogs returns matching entries newest first.
func (m *MemoryStore) GovernanceLogs(_ context.Context, f governance.LogFilter) ([]model.GovernanceLogEntry, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.GovernanceLogEntry{}
	for _, i := range newestFirst(len(m.logs), func(i int) time.Time { return m.logs[i].Timestamp }) {
		e := m.logs[i]
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// DeleteGovernanceLogsBefore removes entries older than cutoff.
func (m *MemoryStore) DeleteGovernanceLogsBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return 0, err
	}
	kept := m.logs[:0]
	for _, e := range m.logs {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	deleted := len(m.logs) - len(kept)
	m.logs = kept
	return deleted, nil
}

// AppendMLRiskLog stores a monitoring record.
func (m *MemoryStore) AppendMLRiskLog(_ context.Context, l model.MLRiskLog) error {
	if err := checkUser(l.UserID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.mlLogs = append(m.mlLogs, l)
	return nil
}

// RecentMLRiskLogs returns logs recorded at or after since, newest first.
func (m *MemoryStore) RecentMLRiskLogs(_ context.Context, since time.Time, limit int) ([]model.MLRiskLog, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.MLRiskLog{}
	for _, i := range newestFirst(len(m.mlLogs), func(i int) time.Time { return m.mlLogs[i].RecordedAt }) {
		if m.mlLogs[i].RecordedAt.Before(since) {
			continue
		}
		out = append(out, m.mlLogs[i])
	}
	return out[:capped(len(out), limit)], nil
}

// AppendMentorMemory stores a note.
func (m *MemoryStore) AppendMentorMemory(_ context.Context, mem model.MentorMemory) error {
	if err := checkUser(mem.UserID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	m.memories = append(m.memories, mem)
	return nil
}

// MentorMemories returns a user's notes newest first.
func (m *MemoryStore) MentorMemories(_ context.Context, userID string, limit int) ([]model.MentorMemory, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.MentorMemory{}
	for _, i := range newestFirst(len(m.memories), func(i int) time.Time { return m.memories[i].RecordedAt }) {
		if m.memories[i].UserID == userID {
			out = append(out, m.memories[i])
		}
	}
	return out[:capped(len(out), limit)], nil
}

// UpsertProfile creates or replaces a profile.
func (m *MemoryStore) UpsertProfile(_ context.Context, p model.Profile) error {
	if err := checkUser(p.UserID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return err
	}
	p.ClaimedSkills = append([]string(nil), p.ClaimedSkills...)
	m.profiles[p.UserID] = p
	return nil
}

// Profile returns the stored profile of userID.
func (m *MemoryStore) Profile(_ context.Context, userID string) (model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	p.ClaimedSkills = append([]string(nil), p.ClaimedSkills...)
	return p, nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
