// Package benchmark computes peer standing, team burnout and team
// composition simulations from per-user risk snapshots.
//
// Every operation works on the latest snapshot per member and never modifies
// the caller's snapshot slice.
package benchmark

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	burnoutAvgWeight    = 0.6
	burnoutSpreadWeight = 0.4
	historyLimit        = 12
	historyLabelLayout  = "02/01"
)

// PercentileCaveat documents what the percentile counts.
const PercentileCaveat = "percentile counts peers with a risk at or below yours, including you and anyone tied with you"

// LatestPerUser keeps the most recent snapshot of every user, ordered by user
// ID. Ties on RecordedAt keep the snapshot that comes later in the input.
func LatestPerUser(snaps []model.RiskSnapshot) []model.RiskSnapshot {
	latest := make(map[string]model.RiskSnapshot, len(snaps))
	for _, s := range snaps {
		if cur, ok := latest[s.UserID]; !ok || !s.RecordedAt.Before(cur.RecordedAt) {
			latest[s.UserID] = s
		}
	}
	out := make([]model.RiskSnapshot, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Team is the latest score of every member of one team or organization.
type Team struct {
	context string
	index   *Index
}

// NewTeam indexes the latest snapshot per user. context names the scope in
// messages (for example "Acme / Platform").
func NewTeam(context string, snaps []model.RiskSnapshot) *Team {
	idx := NewIndex()
	for _, s := range LatestPerUser(snaps) {
		idx.Set(s.UserID, s.RiskScore)
	}
	return &Team{context: context, index: idx}
}

// Size returns the number of members.
func (t *Team) Size() int { return t.index.Len() }

// Members returns members from safest to riskiest.
func (t *Team) Members() []Member { return t.index.Ascending() }

// Scores returns member scores in ascending order.
func (t *Team) Scores() []int {
	members := t.index.Ascending()
	out := make([]int, len(members))
	for i, m := range members {
		out[i] = m.Score
	}
	return out
}

// Standing is a user's percentile position among peers.
type Standing struct {
	Context    string `json:"context"`
	Score      int    `json:"score"`
	Percentile int    `json:"percentile"`
	PeerCount  int    `json:"peer_count"`
	Message    string `json:"message"`
	Caveat     string `json:"caveat"`
}

// Percentile is round(count(peer <= my) / total * 100). A single peer is
// always 100 and no peers give 0.
func Percentile(my int, peers []int) int {
	if len(peers) == 0 {
		return 0
	}
	if len(peers) == 1 {
		return 100
	}
	n := 0
	for _, p := range peers {
		if p <= my {
			n++
		}
	}
	return percentOf(n, len(peers))
}

func percentOf(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}

// Standing places a member within the team.
func (t *Team) Standing(userID string) (Standing, error) {
	my, ok := t.index.Score(userID)
	if !ok {
		return Standing{}, fmt.Errorf("standing for %q: %w", userID, ErrUnknownMember)
	}
	total := t.index.Len()
	pct := 100
	if total > 1 {
		pct = percentOf(t.index.CountAtOrBelow(my), total)
	}
	metrics.RecordBenchmark("standing")
	return Standing{
		Context:    t.context,
		Score:      my,
		Percentile: pct,
		PeerCount:  total,
		Message:    fmt.Sprintf("Within %s, you are safer than %d%% of your peers.", t.contextOrDefault(), pct),
		Caveat:     PercentileCaveat,
	}, nil
}

func (t *Team) contextOrDefault() string {
	if strings.TrimSpace(t.context) == "" {
		return "your team"
	}
	return t.context
}

// Burnout blends mean risk with its population standard deviation.
func Burnout(scores []int) model.TeamBenchmark {
	if len(scores) == 0 {
		return model.TeamBenchmark{Level: model.RiskLow}
	}
	avg := mean(scores)
	sd := pstdev(scores, avg)
	score := int(math.Round(avg*burnoutAvgWeight + sd*burnoutSpreadWeight))
	if score > 100 {
		score = 100
	}
	return model.TeamBenchmark{
		AvgRisk:      int(avg),
		Variance:     int(sd),
		BurnoutScore: score,
		Level:        model.LevelForScore(score),
		MemberCount:  len(scores),
	}
}

// Burnout computes the team's burnout benchmark.
func (t *Team) Burnout() (model.TeamBenchmark, error) {
	if t.index.Len() == 0 {
		return model.TeamBenchmark{}, ErrNoData
	}
	metrics.RecordBenchmark("burnout")
	return Burnout(t.Scores()), nil
}

// Simulation is the outcome of a what-if change to team composition.
// Impact is positive when average risk gets worse.
type Simulation struct {
	CurrentAvg   int    `json:"current_avg"`
	NewAvg       int    `json:"new_avg"`
	Impact       int    `json:"impact"`
	AnchorUserID string `json:"anchor_user_id,omitempty"`
	AnchorScore  *int   `json:"anchor_score,omitempty"`
}

// SimulateExit removes one instance of the lowest score and reports the
// change in mean risk.
func SimulateExit(scores []int) (Simulation, error) {
	if len(scores) < 2 {
		return Simulation{}, ErrTooFewMembers
	}
	local := append([]int(nil), scores...)
	minAt := 0
	for i, s := range local {
		if s < local[minAt] {
			minAt = i
		}
	}
	anchor := local[minAt]
	rest := append(local[:minAt:minAt], local[minAt+1:]...)
	sim := simulate(mean(scores), mean(rest))
	sim.AnchorScore = &anchor
	return sim, nil
}

// SimulateHire adds a hypothetical member score.
func SimulateHire(scores []int, hypothetical int) (Simulation, error) {
	if len(scores) == 0 {
		return Simulation{}, ErrNoData
	}
	local := make([]int, 0, len(scores)+1)
	local = append(local, scores...)
	local = append(local, model.ClampScore(hypothetical))
	return simulate(mean(scores), mean(local)), nil
}

func simulate(current, next float64) Simulation {
	return Simulation{CurrentAvg: int(current), NewAvg: int(next), Impact: int(next - current)}
}

// SimulateExit removes the team anchor.
func (t *Team) SimulateExit() (Simulation, error) {
	anchor, ok := t.index.Min()
	if !ok {
		return Simulation{}, ErrNoData
	}
	sim, err := SimulateExit(t.Scores())
	if err != nil {
		return Simulation{}, err
	}
	sim.AnchorUserID = anchor.UserID
	metrics.RecordBenchmark("simulate_exit")
	return sim, nil
}

// SimulateHire adds a hypothetical member.
func (t *Team) SimulateHire(score int) (Simulation, error) {
	sim, err := SimulateHire(t.Scores(), score)
	if err != nil {
		return Simulation{}, err
	}
	metrics.RecordBenchmark("simulate_hire")
	return sim, nil
}

// Health is the inverse of average team risk.
type Health struct {
	Score       int    `json:"health_score"`
	Label       string `json:"label"`
	MemberCount int    `json:"member_count"`
}

// Health labels: Strong above 75, Stable above 50, otherwise Critical.
func (t *Team) Health() (Health, error) {
	n := t.index.Len()
	if n == 0 {
		return Health{}, ErrNoData
	}
	h := 100 - float64(t.index.Sum())/float64(n)
	label := "Critical"
	switch {
	case h > 75:
		label = "Strong"
	case h > 50:
		label = "Stable"
	}
	metrics.RecordBenchmark("health")
	return Health{Score: int(h), Label: label, MemberCount: n}, nil
}

// Contribution is one member's distance from the team mean.
type Contribution struct {
	UserID        string  `json:"user_id"`
	Risk          int     `json:"risk"`
	Contribution  float64 `json:"contribution"`
	IsCurrentUser bool    `json:"is_current_user"`
}

// Contributions ranks members from safest to riskiest with the team mean minus
// their score, so safer members contribute positively. An empty team yields
// an empty slice.
func (t *Team) Contributions(currentUserID string) []Contribution {
	members := t.index.Ascending()
	out := make([]Contribution, 0, len(members))
	if len(members) == 0 {
		return out
	}
	avg := float64(t.index.Sum()) / float64(len(members))
	for _, m := range members {
		out = append(out, Contribution{
			UserID:        m.UserID,
			Risk:          m.Score,
			Contribution:  math.Round((avg-float64(m.Score))*100) / 100,
			IsCurrentUser: m.UserID == currentUserID,
		})
	}
	return out
}

// Timeline is a chronological risk series for charts.
type Timeline struct {
	Labels     []string `json:"labels"`
	DataPoints []int    `json:"data_points"`
}

// History returns the last 12 snapshots of one user in chronological order.
func History(snaps []model.RiskSnapshot) Timeline {
	local := append([]model.RiskSnapshot(nil), snaps...)
	sort.SliceStable(local, func(i, j int) bool { return local[i].RecordedAt.After(local[j].RecordedAt) })
	if len(local) > historyLimit {
		local = local[:historyLimit]
	}
	tl := Timeline{Labels: make([]string, 0, len(local)), DataPoints: make([]int, 0, len(local))}
	for i := len(local) - 1; i >= 0; i-- {
		tl.Labels = append(tl.Labels, local[i].RecordedAt.Format(historyLabelLayout))
		tl.DataPoints = append(tl.DataPoints, local[i].RiskScore)
	}
	return tl
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	total := 0
	for _, x := range xs {
		total += x
	}
	return float64(total) / float64(len(xs))
}

func pstdev(xs []int, avg float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := float64(x) - avg
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
