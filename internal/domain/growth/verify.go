package growth

import (
	"fmt"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/metrics"
)

// Verification outcomes.
const (
	OutcomeVerified = "verified"
	OutcomeAlready  = "already_completed"
	OutcomeNoCode   = "no_code"
	OutcomeNotFound = "not_found"
)

// Verification is the result of checking one task.
type Verification struct {
	Success bool       `json:"success"`
	Outcome string     `json:"outcome"`
	Message string     `json:"message"`
	Task    model.Task `json:"task"`
	// PlanCompleted is true when this call completed the last pending task.
	PlanCompleted bool `json:"plan_completed"`
}

// Verify checks a task against freshly harvested signals. The input plan is
// never modified; the returned plan carries any status change.
func Verify(plan model.WeeklyPlan, taskID int, signals model.RawSignals, now time.Time) (Verification, model.WeeklyPlan, error) {
	out := plan.Clone()
	idx := -1
	for i, t := range out.Tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		metrics.RecordTaskVerification(OutcomeNotFound)
		return Verification{Outcome: OutcomeNotFound, Message: "Task not found."}, out,
			fmt.Errorf("task %d in week %s: %w", taskID, plan.WeekID, ErrTaskNotFound)
	}

	t := out.Tasks[idx]
	if t.Status == model.TaskCompleted {
		metrics.RecordTaskVerification(OutcomeAlready)
		return Verification{Success: true, Outcome: OutcomeAlready, Message: "Already completed.", Task: t}, out, nil
	}

	if t.Verifiable() && signals.Bytes(t.VerifyKey) <= 0 {
		metrics.RecordTaskVerification(OutcomeNoCode)
		return Verification{
			Outcome: OutcomeNoCode,
			Message: fmt.Sprintf("No code detected for %s. Push code and try again.", t.VerifyKey),
			Task:    t,
		}, out, nil
	}

	t.Status = model.TaskCompleted
	out.Tasks[idx] = t
	v := Verification{Success: true, Outcome: OutcomeVerified, Message: "Task Verified!", Task: t}
	if !out.Completed && out.AllCompleted() {
		at := now
		out.Completed = true
		out.CompletedAt = &at
		v.PlanCompleted = true
	}
	metrics.RecordTaskVerification(OutcomeVerified)
	return v, out, nil
}

// NextStreak advances the weekly streak on the first verified task of an ISO
// week. It returns the new streak, the new last-check time and whether the
// streak moved.
func NextStreak(streak int, lastCheck *time.Time, now time.Time) (int, *time.Time, bool) {
	if lastCheck != nil && sameISOWeek(*lastCheck, now) {
		return streak, lastCheck, false
	}
	at := now
	return streak + 1, &at, true
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
