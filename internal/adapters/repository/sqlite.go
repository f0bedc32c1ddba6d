package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	login TEXT NOT NULL DEFAULT '',
	team TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	claimed_skills TEXT NOT NULL DEFAULT '[]',
	streak_count INTEGER NOT NULL DEFAULT 0,
	last_weekly_check TEXT
);

CREATE TABLE IF NOT EXISTS risk_snapshots (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	scope TEXT NOT NULL DEFAULT '',
	risk_score INTEGER NOT NULL,
	risk_level TEXT NOT NULL,
	risk_factor TEXT NOT NULL DEFAULT '',
	mitigation_strategy TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_user_time ON risk_snapshots(user_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_risk_scope ON risk_snapshots(scope);

CREATE TABLE IF NOT EXISTS skill_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	skill TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_skill_user ON skill_snapshots(user_id, skill, recorded_at DESC);

CREATE TABLE IF NOT EXISTS weekly_plans (
	user_id TEXT NOT NULL,
	week_id TEXT NOT NULL,
	focus_skill TEXT NOT NULL,
	mode TEXT NOT NULL,
	reasoning TEXT NOT NULL DEFAULT '',
	tasks TEXT NOT NULL DEFAULT '[]',
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, week_id)
);

CREATE TABLE IF NOT EXISTS governance_logs (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	details TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL,
	checksum TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_governance_time ON governance_logs(timestamp DESC);

CREATE TABLE IF NOT EXISTS ml_risk_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	rule_risk INTEGER NOT NULL,
	ml_risk INTEGER NOT NULL,
	final_risk INTEGER NOT NULL,
	model_version TEXT NOT NULL,
	mode TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ml_time ON ml_risk_logs(recorded_at DESC);

CREATE TABLE IF NOT EXISTS mentor_memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_user ON mentor_memories(user_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// SQLiteStore is the durable Store backed by modernc.org/sqlite.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	logger      logger.Logger
}

// OpenSQLite opens or creates the database at path and bootstraps the schema.
// Use MemoryPath for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        path,
		busyTimeout: DefaultBusyTimeout,
		logger:      logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)
	s.db = db

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
		"PRAGMA cache_size=-16000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	s.logger.Info(ctx, "store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) bootstrap(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO schema_version (version) VALUES (?)", schemaVersion)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// AppendRiskSnapshot stores s.
func (s *SQLiteStore) AppendRiskSnapshot(ctx context.Context, snap model.RiskSnapshot) (err error) {
	defer observe("append_risk_snapshot", time.Now(), &err)
	if err = checkUser(snap.UserID); err != nil {
		return err
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_snapshots (id, user_id, scope, risk_score, risk_level, risk_factor, mitigation_strategy, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.UserID, snap.Scope, snap.RiskScore, string(snap.RiskLevel),
		snap.RiskFactor, snap.MitigationStrategy, formatTime(snap.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = "id, user_id, scope, risk_score, risk_level, risk_factor, mitigation_strategy, recorded_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (model.RiskSnapshot, error) {
	var (
		snap  model.RiskSnapshot
		level string
		at    string
	)
	if err := row.Scan(&snap.ID, &snap.UserID, &snap.Scope, &snap.RiskScore, &level,
		&snap.RiskFactor, &snap.MitigationStrategy, &at); err != nil {
		return model.RiskSnapshot{}, err
	}
	snap.RiskLevel = model.RiskLevel(level)
	t, err := parseTime(at)
	if err != nil {
		return model.RiskSnapshot{}, err
	}
	snap.RecordedAt = t
	return snap, nil
}

// LatestRiskSnapshot returns the newest snapshot of userID.
func (s *SQLiteStore) LatestRiskSnapshot(ctx context.Context, userID string) (snap model.RiskSnapshot, err error) {
	defer observe("latest_risk_snapshot", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM risk_snapshots
		WHERE user_id = ? ORDER BY recorded_at DESC, rowid DESC LIMIT 1`, userID)
	snap, err = scanSnapshot(row)
	if err != nil {
		return model.RiskSnapshot{}, notFound(err, "risk snapshot for "+userID)
	}
	return snap, nil
}

// RiskHistory returns snapshots newest first.
func (s *SQLiteStore) RiskHistory(ctx context.Context, userID string, limit int) (out []model.RiskSnapshot, err error) {
	defer observe("risk_history", time.Now(), &err)
	if err = checkLimit(limit); err != nil {
		return nil, err
	}
	q := `SELECT ` + snapshotColumns + ` FROM risk_snapshots WHERE user_id = ? ORDER BY recorded_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.querySnapshots(ctx, q, args...)
}

// TeamRiskSnapshots returns the latest snapshot of each user whose latest
// snapshot falls in the scope.
func (s *SQLiteStore) TeamRiskSnapshots(ctx context.Context, f TeamFilter) (out []model.RiskSnapshot, err error) {
	defer observe("team_risk_snapshots", time.Now(), &err)
	var (
		where []string
		args  []any
	)
	where = append(where, `r.rowid = (SELECT r2.rowid FROM risk_snapshots r2 WHERE r2.user_id = r.user_id
		ORDER BY r2.recorded_at DESC, r2.rowid DESC LIMIT 1)`)
	if f.Scope != "" {
		where = append(where, "r.scope = ?")
		args = append(args, f.Scope)
	}
	if !f.Since.IsZero() {
		where = append(where, "r.recorded_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	q := `SELECT r.id, r.user_id, r.scope, r.risk_score, r.risk_level, r.risk_factor, r.mitigation_strategy, r.recorded_at
		FROM risk_snapshots r WHERE ` + strings.Join(where, " AND ") + ` ORDER BY r.user_id`
	return s.querySnapshots(ctx, q, args...)
}

func (s *SQLiteStore) querySnapshots(ctx context.Context, q string, args ...any) ([]model.RiskSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query risk snapshots: %w", err)
	}
	defer rows.Close()

	out := []model.RiskSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// AppendSkillSnapshots inserts all rows in one transaction.
func (s *SQLiteStore) AppendSkillSnapshots(ctx context.Context, snaps []model.SkillSnapshot) (err error) {
	defer observe("append_skill_snapshots", time.Now(), &err)
	if len(snaps) == 0 {
		return nil
	}
	for _, sn := range snaps {
		if err = checkUser(sn.UserID); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO skill_snapshots (user_id, skill, confidence, recorded_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare skill insert: %w", err)
	}
	defer stmt.Close()
	for _, sn := range snaps {
		if _, err = stmt.ExecContext(ctx, sn.UserID, sn.Skill, sn.Confidence, formatTime(sn.RecordedAt)); err != nil {
			return fmt.Errorf("insert skill snapshot %s: %w", sn.Skill, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpsertWeeklyPlan replaces focus, mode, tasks and completion of an existing
// plan for the same week.
func (s *SQLiteStore) UpsertWeeklyPlan(ctx context.Context, p model.WeeklyPlan) (err error) {
	defer observe("upsert_weekly_plan", time.Now(), &err)
	if err = checkUser(p.UserID); err != nil {
		return err
	}
	if p.WeekID == "" {
		return fmt.Errorf("empty week id: %w", ErrInvalidRecord)
	}
	tasks, err := json.Marshal(p.Tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	completed := 0
	if p.Completed {
		completed = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weekly_plans (user_id, week_id, focus_skill, mode, reasoning, tasks, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_id) DO UPDATE SET
			focus_skill = excluded.focus_skill,
			mode = excluded.mode,
			reasoning = excluded.reasoning,
			tasks = excluded.tasks,
			completed = excluded.completed,
			completed_at = excluded.completed_at`,
		p.UserID, p.WeekID, p.FocusSkill, string(p.Mode), p.Reasoning, string(tasks),
		completed, nullTime(p.CompletedAt), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert weekly plan: %w", err)
	}
	return nil
}

// WeeklyPlan returns the plan for a user and ISO week.
func (s *SQLiteStore) WeeklyPlan(ctx context.Context, userID, weekID string) (p model.WeeklyPlan, err error) {
	defer observe("weekly_plan", time.Now(), &err)
	var (
		mode        string
		tasks       string
		completed   int
		completedAt sql.NullString
		createdAt   string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, week_id, focus_skill, mode, reasoning, tasks, completed, completed_at, created_at
		FROM weekly_plans WHERE user_id = ? AND week_id = ?`, userID, weekID).
		Scan(&p.UserID, &p.WeekID, &p.FocusSkill, &mode, &p.Reasoning, &tasks, &completed, &completedAt, &createdAt)
	if err != nil {
		return model.WeeklyPlan{}, notFound(err, "weekly plan "+userID+"/"+weekID)
	}
	p.Mode = model.PlanMode(mode)
	p.Completed = completed != 0
	if err = json.Unmarshal([]byte(tasks), &p.Tasks); err != nil {
		return model.WeeklyPlan{}, fmt.Errorf("decode tasks: %w", err)
	}
	if p.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return model.WeeklyPlan{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.WeeklyPlan{}, err
	}
	return p, nil
}

// AppendGovernanceLog stores an audit entry. An empty ID is assigned.
func (s *SQLiteStore) AppendGovernanceLog(ctx context.Context, e model.GovernanceLogEntry) (err error) {
	defer observe("append_governance_log", time.Now(), &err)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO governance_logs (id, event_type, severity, details, user_id, timestamp, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EventType, string(e.Severity), e.Details, e.UserID, formatTime(e.Timestamp), e.Checksum)
	if err != nil {
		return fmt.Errorf("insert governance log: %w", err)
	}
	return nil
}

// GovernanceLogs returns matching entries newest first.
func (s *SQLiteStore) GovernanceLogs(ctx context.Context, f governance.LogFilter) (out []model.GovernanceLogEntry, err error) {
	defer observe("governance_logs", time.Now(), &err)
	if err = checkLimit(f.Limit); err != nil {
		return nil, err
	}
	q := `SELECT id, event_type, severity, details, user_id, timestamp, checksum FROM governance_logs WHERE 1 = 1`
	var args []any
	if f.UserID != "" {
		q += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, formatTime(f.Since))
	}
	q += " ORDER BY timestamp DESC, rowid DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query governance logs: %w", err)
	}
	defer rows.Close()

	out = []model.GovernanceLogEntry{}
	for rows.Next() {
		var (
			e   model.GovernanceLogEntry
			sev string
			ts  string
		)
		if err = rows.Scan(&e.ID, &e.EventType, &sev, &e.Details, &e.UserID, &ts, &e.Checksum); err != nil {
			return nil, fmt.Errorf("scan governance log: %w", err)
		}
		e.Severity = model.Severity(sev)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteGovernanceLogsBefore removes entries older than cutoff in one
// transaction and returns how many were removed.
func (s *SQLiteStore) DeleteGovernanceLogsBefore(ctx context.Context, cutoff time.Time) (n int, err error) {
	defer observe("delete_governance_logs", time.Now(), &err)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM governance_logs WHERE timestamp < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete governance logs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(affected), nil
}

// AppendMLRiskLog stores a monitoring record.
func (s *SQLiteStore) AppendMLRiskLog(ctx context.Context, l model.MLRiskLog) (err error) {
	defer observe("append_ml_risk_log", time.Now(), &err)
	if err = checkUser(l.UserID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ml_risk_logs (user_id, rule_risk, ml_risk, final_risk, model_version, mode, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.UserID, l.RuleRisk, l.MLRisk, l.FinalRisk, l.ModelVersion, string(l.Mode), formatTime(l.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert ml risk log: %w", err)
	}
	return nil
}

// RecentMLRiskLogs returns logs recorded at or after since, newest first.
func (s *SQLiteStore) RecentMLRiskLogs(ctx context.Context, since time.Time, limit int) (out []model.MLRiskLog, err error) {
	defer observe("recent_ml_risk_logs", time.Now(), &err)
	if err = checkLimit(limit); err != nil {
		return nil, err
	}
	q := `SELECT user_id, rule_risk, ml_risk, final_risk, model_version, mode, recorded_at
		FROM ml_risk_logs WHERE recorded_at >= ? ORDER BY recorded_at DESC, id DESC`
	args := []any{formatTime(since)}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ml risk logs: %w", err)
	}
	defer rows.Close()

	out = []model.MLRiskLog{}
	for rows.Next() {
		var (
			l    model.MLRiskLog
			mode string
			at   string
		)
		if err = rows.Scan(&l.UserID, &l.RuleRisk, &l.MLRisk, &l.FinalRisk, &l.ModelVersion, &mode, &at); err != nil {
			return nil, fmt.Errorf("scan ml risk log: %w", err)
		}
		l.Mode = model.PredictionMode(mode)
		if l.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AppendMentorMemory stores a note.
func (s *SQLiteStore) AppendMentorMemory(ctx context.Context, m model.MentorMemory) (err error) {
	defer observe("append_mentor_memory", time.Now(), &err)
	if err = checkUser(m.UserID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mentor_memories (user_id, category, content, recorded_at) VALUES (?, ?, ?, ?)`,
		m.UserID, m.Category, m.Content, formatTime(m.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert mentor memory: %w", err)
	}
	return nil
}

// MentorMemories returns a user's notes newest first.
func (s *SQLiteStore) MentorMemories(ctx context.Context, userID string, limit int) (out []model.MentorMemory, err error) {
	defer observe("mentor_memories", time.Now(), &err)
	if err = checkLimit(limit); err != nil {
		return nil, err
	}
	q := `SELECT user_id, category, content, recorded_at FROM mentor_memories
		WHERE user_id = ? ORDER BY recorded_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query mentor memories: %w", err)
	}
	defer rows.Close()

	out = []model.MentorMemory{}
	for rows.Next() {
		var (
			m  model.MentorMemory
			at string
		)
		if err = rows.Scan(&m.UserID, &m.Category, &m.Content, &at); err != nil {
			return nil, fmt.Errorf("scan mentor memory: %w", err)
		}
		if m.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertProfile creates or replaces a profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p model.Profile) (err error) {
	defer observe("upsert_profile", time.Now(), &err)
	if err = checkUser(p.UserID); err != nil {
		return err
	}
	claimed := p.ClaimedSkills
	if claimed == nil {
		claimed = []string{}
	}
	raw, err := json.Marshal(claimed)
	if err != nil {
		return fmt.Errorf("encode claimed skills: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, login, team, organization, company, region, claimed_skills, streak_count, last_weekly_check)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			login = excluded.login,
			team = excluded.team,
			organization = excluded.organization,
			company = excluded.company,
			region = excluded.region,
			claimed_skills = excluded.claimed_skills,
			streak_count = excluded.streak_count,
			last_weekly_check = excluded.last_weekly_check`,
		p.UserID, p.Login, p.Team, p.Organization, p.Company, p.Region, string(raw),
		p.StreakCount, nullTime(p.LastWeeklyCheck))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Profile returns the stored profile of userID.
func (s *SQLiteStore) Profile(ctx context.Context, userID string) (p model.Profile, err error) {
	defer observe("profile", time.Now(), &err)
	var (
		claimed   string
		lastCheck sql.NullString
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, login, team, organization, company, region, claimed_skills, streak_count, last_weekly_check
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Login, &p.Team, &p.Organization, &p.Company, &p.Region, &claimed, &p.StreakCount, &lastCheck)
	if err != nil {
		return model.Profile{}, notFound(err, "profile "+userID)
	}
	if err = json.Unmarshal([]byte(claimed), &p.ClaimedSkills); err != nil {
		return model.Profile{}, fmt.Errorf("decode claimed skills: %w", err)
	}
	if p.LastWeeklyCheck, err = parseNullTime(lastCheck); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}
