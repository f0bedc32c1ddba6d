package model

import (
	"fmt"
	"time"
)

// PlanMode selects the task template of a weekly plan.
type PlanMode string

const (
	ModeGrowth        PlanMode = "GROWTH"
	ModeHardcore      PlanMode = "HARDCORE"
	ModeAccelerator   PlanMode = "ACCELERATOR"
	ModeMicroLearning PlanMode = "MICRO_LEARNING"
)

// TaskType is the kind of work a task asks for.
type TaskType string

const (
	TaskLearn  TaskType = "Learn"
	TaskCode   TaskType = "Code"
	TaskReview TaskType = "Review"
	TaskDesign TaskType = "Design"
)

// TaskStatus is pending until verified.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is one entry of a weekly plan. VerifyKey, when set, names the skill
// that must show up in harvested signals for the task to complete.
type Task struct {
	ID          int        `json:"id"`
	Day         string     `json:"day"`
	Type        TaskType   `json:"type"`
	Description string     `json:"task"`
	VerifyKey   string     `json:"verify_key,omitempty"`
	Status      TaskStatus `json:"status"`
}

// Verifiable reports whether completion needs a signal check.
func (t Task) Verifiable() bool { return t.VerifyKey != "" }

// WeeklyPlan is keyed by (UserID, WeekID).
type WeeklyPlan struct {
	UserID      string     `json:"user_id"`
	WeekID      string     `json:"week_id"`
	FocusSkill  string     `json:"focus_skill"`
	Mode        PlanMode   `json:"mode"`
	Reasoning   string     `json:"reasoning"`
	Tasks       []Task     `json:"tasks"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AllCompleted reports whether every task is completed. An empty plan is not.
func (p WeeklyPlan) AllCompleted() bool {
	if len(p.Tasks) == 0 {
		return false
	}
	for _, t := range p.Tasks {
		if t.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// Clone returns a copy with its own task slice.
func (p WeeklyPlan) Clone() WeeklyPlan {
	out := p
	out.Tasks = append([]Task(nil), p.Tasks...)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// WeekID formats the ISO year-week of t, e.g. 2026-W07.
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
