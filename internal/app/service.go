// Package service wires the harvester, the scoring pipeline and the store
// into the operations exposed by the command line and ops server.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/careerpulse/internal/adapters/artifact"
	"github.com/okian/careerpulse/internal/adapters/mq/queue"
	"github.com/okian/careerpulse/internal/adapters/mq/worker"
	"github.com/okian/careerpulse/internal/adapters/repository"
	"github.com/okian/careerpulse/internal/domain/benchmark"
	"github.com/okian/careerpulse/internal/domain/explain"
	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/growth"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/risk"
	"github.com/okian/careerpulse/internal/domain/skill"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	featureHistory   = 5
	timelineHistory  = 12
	summaryCategory  = "SUMMARY"
	defaultQueueSize = 1024
)

// Harvester collects the signals of the account behind a token.
type Harvester interface {
	Harvest(ctx context.Context, token string) model.RawSignals
}

// Service runs analysis cycles. Create it with New and call Start before use.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	harvester Harvester

	// Started components
	queue           *queue.InMemoryQueue
	pool            *worker.Pool
	offload         *offloadStore
	model           *artifact.Model
	engine          *risk.Engine
	counterfactuals *explain.Counterfactuals
	auditor         *governance.Auditor

	calculator *skill.Calculator
	planner    *growth.Generator

	// Configuration
	workerCount    int
	queueSize      int
	modelDir       string
	libPath        string
	predictor      risk.Predictor
	explainer      explain.Explainer
	spikeThreshold int
	retentionDays  int
	marketSkills   []string
	hardcoreStreak int
	now            func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of offload workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the offload queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithModelDir loads the risk model artifact from dir on Start.
func WithModelDir(dir string) Option {
	return func(s *Service) { s.modelDir = dir }
}

// WithSharedLibraryPath pins the onnxruntime library used by the model.
func WithSharedLibraryPath(path string) Option {
	return func(s *Service) { s.libPath = path }
}

// WithPredictor sets the ML predictor and skips artifact loading.
func WithPredictor(p risk.Predictor) Option {
	return func(s *Service) { s.predictor = p }
}

// WithExplainer sets the contribution source of counterfactuals.
func WithExplainer(e explain.Explainer) Option {
	return func(s *Service) { s.explainer = e }
}

// WithSpikeThreshold sets the governance spike delta.
func WithSpikeThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.spikeThreshold = n
		}
	}
}

// WithRetentionDays sets the governance retention window.
func WithRetentionDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

// WithMarketSkills replaces the market demand list.
func WithMarketSkills(skills []string) Option {
	return func(s *Service) {
		if len(skills) > 0 {
			s.marketSkills = append([]string(nil), skills...)
		}
	}
}

// WithHardcoreStreak sets the streak that unlocks HARDCORE plans.
func WithHardcoreStreak(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.hardcoreStreak = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store and harvester.
func New(store repository.Store, harvester Harvester, opts ...Option) *Service {
	s := &Service{
		store:          store,
		harvester:      harvester,
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		spikeThreshold: governance.DefaultSpikeThreshold,
		retentionDays:  governance.DefaultRetentionDays,
		hardcoreStreak: growth.DefaultHardcoreStreak,
		now:            time.Now,
		logger:         logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calculator = skill.NewCalculator(skill.WithMarketSkills(s.marketSkills))
	s.planner = growth.NewGenerator(growth.WithHardcoreStreak(s.hardcoreStreak))
	return s
}

// Start launches the offload pool and loads the model artifact. A model
// that cannot be loaded leaves the heuristic predictor in place.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.WithPoolLogger(s.logger.Named("pool")))
	s.pool.Start(ctx)
	s.offload = &offloadStore{store: s.store, pool: s.pool}

	predictor, explainer := s.predictor, s.explainer
	if predictor == nil && s.modelDir != "" {
		m, err := call(ctx, s.pool, "load_model", func(ctx context.Context) (*artifact.Model, error) {
			return artifact.Load(ctx, s.modelDir,
				artifact.WithSharedLibraryPath(s.libPath),
				artifact.WithLogger(s.logger.Named("artifact")))
		})
		if err != nil {
			s.logger.Warn(ctx, "risk model unavailable; using heuristic",
				logger.String("dir", s.modelDir), logger.Error(err))
			metrics.RecordModelFallback("service", "model_unavailable")
		} else {
			s.model = m
			predictor = m
			if explainer == nil {
				explainer = m
			}
		}
	}

	s.engine = risk.NewEngine(risk.WithPredictor(predictor), risk.WithLogger(s.logger.Named("risk")))
	cfOpts := []explain.Option{explain.WithLogger(s.logger.Named("explain"))}
	if explainer != nil {
		cfOpts = append(cfOpts, explain.WithExplainer(explainer))
	}
	s.counterfactuals = explain.New(cfOpts...)
	s.auditor = governance.NewAuditor(s.offload, s.offload,
		governance.WithMemory(s.offload),
		governance.WithSpikeThreshold(s.spikeThreshold),
		governance.WithRetentionDays(s.retentionDays),
		governance.WithClock(s.now),
		governance.WithLogger(s.logger.Named("governance")))

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Bool("model_loaded", s.model != nil))
	return nil
}

// Stop drains the offload pool and releases the model. The store stays open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.pool.Stop()
	if s.model != nil {
		if err := s.model.Close(); err != nil {
			s.logger.Warn(context.Background(), "model close failed", logger.Error(err))
		}
		s.model = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

// ModelVersion names the loaded artifact, or the heuristic.
func (s *Service) ModelVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model != nil {
		return s.model.Version()
	}
	return risk.HeuristicVersion
}

// QueueLen returns the number of offload jobs waiting.
func (s *Service) QueueLen(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0
	}
	n := s.queue.Len(ctx)
	metrics.UpdateQueueSize(n, s.queueSize)
	return n
}

func (s *Service) ready(userID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	return nil
}

// persistFailed logs a failed write and appends it to errs.
func (s *Service) persistFailed(ctx context.Context, errs *[]string, stage string, err error) {
	s.logger.Warn(ctx, "persist failed", logger.String("stage", stage), logger.Error(err))
	*errs = append(*errs, fmt.Sprintf("%s: %v", stage, err))
}

// SaveProfile creates or replaces a profile.
func (s *Service) SaveProfile(ctx context.Context, p model.Profile) error {
	if err := s.ready(p.UserID); err != nil {
		return err
	}
	return s.offload.UpsertProfile(ctx, p)
}

// Profile returns a stored profile.
func (s *Service) Profile(ctx context.Context, userID string) (model.Profile, error) {
	if err := s.ready(userID); err != nil {
		return model.Profile{}, err
	}
	return s.offload.Profile(ctx, userID)
}

// loadProfile returns false when the user has no usable profile.
func (s *Service) loadProfile(ctx context.Context, userID string) (model.Profile, bool) {
	p, err := s.offload.Profile(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn(ctx, "profile unreadable", logger.String("user_id", userID), logger.Error(err))
		}
		return model.Profile{}, false
	}
	return p, true
}

// activityKnown is false when no activity could be read at all.
func activityKnown(signals model.RawSignals) bool {
	for _, u := range signals.Skipped {
		switch u.Unit {
		case "account", "events", "events:page1":
			return false
		}
	}
	return true
}

// Analyze runs one analysis cycle: harvest, score, forecast, audit, persist,
// explain and plan. Persistence failures are reported on the Report and do
// not stop the cycle.
func (s *Service) Analyze(ctx context.Context, userID, token string) (Report, error) {
	if err := s.ready(userID); err != nil {
		return Report{}, err
	}
	start := time.Now()

	profile, ok := s.loadProfile(ctx, userID)
	if !ok {
		return Report{UserID: userID, Empty: true}, nil
	}

	signals := s.harvester.Harvest(ctx, token)
	conf := s.calculator.Compute(signals, profile.ClaimedSkills)
	m := risk.MetricsFromSignals(signals)
	m.VelocityKnown = activityKnown(signals)
	forecast := s.engine.Forecast(ctx, conf, m)

	r := Report{
		UserID:        userID,
		Signals:       signals,
		Confidence:    conf,
		Forecast:      forecast,
		MarketOverlap: s.calculator.MarketOverlap(signals),
	}
	now := s.now().UTC()

	// Both checks compare against the previous snapshot, so they run first.
	alert, err := s.auditor.CheckSpike(ctx, userID, forecast.RiskScore)
	if err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "spike_check", err)
	}
	r.Spike = alert
	changed, err := s.auditor.LevelChange(ctx, userID, forecast.RiskLevel)
	if err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "level_change", err)
	}
	r.LevelChanged = changed

	if err := s.offload.AppendRiskSnapshot(ctx, forecast.Snapshot("", userID, profile.Scope(), now)); err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "risk_snapshot", err)
	}
	if snaps := skillSnapshots(userID, conf, now); len(snaps) > 0 {
		if err := s.offload.AppendSkillSnapshots(ctx, snaps); err != nil {
			s.persistFailed(ctx, &r.PersistErrors, "skill_snapshots", err)
		}
	}
	if err := s.offload.AppendMLRiskLog(ctx, forecast.MLLog(userID, now)); err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "ml_risk_log", err)
	}

	history, err := s.offload.RiskHistory(ctx, userID, featureHistory)
	if err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "risk_history", err)
	}
	r.Features = features.Compute(signals, conf, history)
	r.Counterfactual = s.counterfactuals.Explain(ctx, r.Features, forecast.RiskScore)
	if err := s.offload.AppendMentorMemory(ctx, model.MentorMemory{
		UserID:     userID,
		Category:   summaryCategory,
		Content:    r.Counterfactual.Summary,
		RecordedAt: now,
	}); err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "mentor_memory", err)
	}

	r.Plan = s.weeklyPlan(ctx, profile, signals, now, &r.PersistErrors)

	s.logger.Info(ctx, "analysis finished",
		logger.String("user_id", userID),
		logger.Int("risk", forecast.RiskScore),
		logger.String("level", string(forecast.RiskLevel)),
		logger.String("mode", string(forecast.Mode)),
		logger.Int("persist_errors", len(r.PersistErrors)),
		logger.Duration("elapsed", time.Since(start)))
	return r, nil
}

// weeklyPlan keeps this week's plan once any task in it is completed and
// otherwise regenerates and stores it.
func (s *Service) weeklyPlan(ctx context.Context, p model.Profile, signals model.RawSignals, now time.Time, errs *[]string) model.WeeklyPlan {
	existing, err := s.offload.WeeklyPlan(ctx, p.UserID, model.WeekID(now))
	switch {
	case err == nil && hasProgress(existing):
		return existing
	case err != nil && !errors.Is(err, model.ErrNotFound):
		s.persistFailed(ctx, errs, "weekly_plan_read", err)
	}

	plan := s.planner.Generate(growth.Input{UserID: p.UserID, Signals: signals, Streak: p.StreakCount, Now: now})
	if err := s.offload.UpsertWeeklyPlan(ctx, plan); err != nil {
		s.persistFailed(ctx, errs, "weekly_plan", err)
	}
	return plan
}

func hasProgress(p model.WeeklyPlan) bool {
	for _, t := range p.Tasks {
		if t.Status == model.TaskCompleted {
			return true
		}
	}
	return false
}

func skillSnapshots(userID string, conf model.SkillConfidence, at time.Time) []model.SkillSnapshot {
	names := make([]string, 0, len(conf))
	for k := range conf {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]model.SkillSnapshot, 0, len(names))
	for _, n := range names {
		out = append(out, model.SkillSnapshot{UserID: userID, Skill: n, Confidence: conf[n], RecordedAt: at})
	}
	return out
}

// VerifyTask re-harvests and checks one task of this week's plan. The first
// verified task of an ISO week advances the user's streak.
func (s *Service) VerifyTask(ctx context.Context, userID, token string, taskID int) (VerifyReport, error) {
	if err := s.ready(userID); err != nil {
		return VerifyReport{}, err
	}
	profile, ok := s.loadProfile(ctx, userID)
	if !ok {
		return VerifyReport{}, fmt.Errorf("profile %s: %w", userID, model.ErrNotFound)
	}
	now := s.now().UTC()
	plan, err := s.offload.WeeklyPlan(ctx, userID, model.WeekID(now))
	if errors.Is(err, model.ErrNotFound) {
		return VerifyReport{Streak: profile.StreakCount}, fmt.Errorf("week %s: %w", model.WeekID(now), growth.ErrNoPlan)
	}
	if err != nil {
		return VerifyReport{Streak: profile.StreakCount}, fmt.Errorf("read weekly plan: %w", err)
	}

	signals := s.harvester.Harvest(ctx, token)
	v, updated, err := growth.Verify(plan, taskID, signals, now)
	r := VerifyReport{Verification: v, Streak: profile.StreakCount}
	if err != nil {
		return r, err
	}
	if v.Outcome != growth.OutcomeVerified {
		return r, nil
	}

	if err := s.offload.UpsertWeeklyPlan(ctx, updated); err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "weekly_plan", err)
	}
	streak, last, moved := growth.NextStreak(profile.StreakCount, profile.LastWeeklyCheck, now)
	r.Streak, r.StreakMoved = streak, moved
	if moved {
		profile.StreakCount = streak
		profile.LastWeeklyCheck = last
		if err := s.offload.UpsertProfile(ctx, profile); err != nil {
			s.persistFailed(ctx, &r.PersistErrors, "profile", err)
		}
	}
	return r, nil
}

// benchmarkContext names the scope in standing messages.
func benchmarkContext(p model.Profile) string {
	parts := make([]string, 0, 2)
	for _, v := range []string{p.Company, p.Organization} {
		if v != "" {
			parts = append(parts, v)
			break
		}
	}
	if p.Team != "" {
		parts = append(parts, p.Team)
	}
	return strings.Join(parts, " / ")
}

// Benchmark compares the user with the latest snapshot of every peer in the
// profile's scope. A profile with neither team nor organization has no peers
// and gets an empty report. hireScore, when set, adds a hire simulation.
func (s *Service) Benchmark(ctx context.Context, userID string, hireScore *int) (BenchmarkReport, error) {
	if err := s.ready(userID); err != nil {
		return BenchmarkReport{}, err
	}
	profile, ok := s.loadProfile(ctx, userID)
	if !ok {
		return BenchmarkReport{UserID: userID, Empty: true, Contributions: []benchmark.Contribution{}}, nil
	}

	r := BenchmarkReport{UserID: userID, Scope: profile.Scope()}
	if r.Scope == "" {
		r.Empty = true
		r.Contributions = []benchmark.Contribution{}
		return r, nil
	}
	snaps, err := s.offload.TeamRiskSnapshots(ctx, repository.TeamFilter{Scope: profile.Scope()})
	if err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "team_snapshots", err)
	}
	team := benchmark.NewTeam(benchmarkContext(profile), snaps)
	if team.Size() == 0 {
		r.Empty = true
	}

	if st, err := team.Standing(userID); err == nil {
		r.Standing = &st
	}
	if b, err := team.Burnout(); err == nil {
		r.Burnout = &b
	}
	if h, err := team.Health(); err == nil {
		r.Health = &h
	}
	if sim, err := team.SimulateExit(); err == nil {
		r.Exit = &sim
	}
	if hireScore != nil {
		if sim, err := team.SimulateHire(*hireScore); err == nil {
			r.Hire = &sim
		}
	}
	r.Contributions = team.Contributions(userID)

	own, err := s.offload.RiskHistory(ctx, userID, timelineHistory)
	if err != nil {
		s.persistFailed(ctx, &r.PersistErrors, "risk_history", err)
	}
	r.History = benchmark.History(own)
	return r, nil
}

// RunRetention purges governance entries older than days; zero uses the
// configured window.
func (s *Service) RunRetention(ctx context.Context, days int) (int, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}
	return s.auditor.Cleanup(ctx, days)
}

// Trust scores how far the user's latest forecast can be relied on.
func (s *Service) Trust(ctx context.Context, userID string) (TrustReport, error) {
	if err := s.ready(userID); err != nil {
		return TrustReport{}, err
	}
	now := s.now().UTC()

	var last *time.Time
	snap, err := s.offload.LatestRiskSnapshot(ctx, userID)
	switch {
	case err == nil:
		at := snap.RecordedAt
		last = &at
	case !errors.Is(err, model.ErrNotFound):
		s.logger.Warn(ctx, "latest snapshot unreadable", logger.String("user_id", userID), logger.Error(err))
	}

	integrity := s.auditor.Integrity(ctx)
	r := TrustReport{
		Trust:     governance.TrustScore(last, integrity, now),
		Integrity: integrity,
		Model:     governance.MonitorModel(ctx, s.offload, now),
	}
	if c, err := s.auditor.ComplianceSummary(ctx, userID); err == nil {
		r.Compliance = &c
	} else {
		s.logger.Warn(ctx, "compliance summary unavailable", logger.Error(err))
	}
	return r, nil
}

// MentorNotes returns the user's most recent notes, newest first.
func (s *Service) MentorNotes(ctx context.Context, userID string, limit int) ([]model.MentorMemory, error) {
	if err := s.ready(userID); err != nil {
		return nil, err
	}
	return s.offload.MentorMemories(ctx, userID, limit)
}
