package growth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/careerpulse/internal/domain/growth"
	"github.com/okian/careerpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var wednesday = time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

func signals(commits int, langs map[string]int64) model.RawSignals {
	return model.RawSignals{LanguageBytes: langs, CommitsLast30Days: commits}
}

func TestGenerate(t *testing.T) {
	g := growth.NewGenerator()

	Convey("Given a developer dominated by one language without Rust", t, func() {
		p := g.Generate(growth.Input{UserID: "u1", Signals: signals(12, map[string]int64{"Python": 90000, "HTML": 5000}), Now: wednesday})

		Convey("Then Rust is targeted with a deep dive", func() {
			So(p.FocusSkill, ShouldEqual, "Rust")
			So(p.Mode, ShouldEqual, model.ModeGrowth)
			So(p.WeekID, ShouldEqual, "2026-W07")
			So(p.Reasoning, ShouldContainSubstring, "High Python dominance")
			So(p.Tasks, ShouldHaveLength, 3)
			So(p.Tasks[0].Verifiable(), ShouldBeFalse)
			So(p.Tasks[1].VerifyKey, ShouldEqual, "rust")
			So(p.Tasks[2].VerifyKey, ShouldEqual, "rust")
			for _, task := range p.Tasks {
				So(task.Status, ShouldEqual, model.TaskPending)
			}
		})
	})

	Convey("Given a balanced developer without cloud native skills", t, func() {
		p := g.Generate(growth.Input{Signals: signals(30, map[string]int64{"Python": 50, "JavaScript": 50}), Now: wednesday})
		So(p.FocusSkill, ShouldEqual, "Go")
	})

	Convey("Given a Go developer with little recent activity", t, func() {
		p := g.Generate(growth.Input{Signals: signals(2, map[string]int64{"Go": 70, "Python": 30}), Now: wednesday})

		Convey("Then the top skill is deepened in micro learning mode", func() {
			So(p.FocusSkill, ShouldEqual, "Go")
			So(p.Mode, ShouldEqual, model.ModeMicroLearning)
			So(p.Reasoning, ShouldContainSubstring, "Micro-Learning")
			So(p.Tasks, ShouldHaveLength, 3)
			verifiable := 0
			for _, task := range p.Tasks {
				if task.Verifiable() {
					verifiable++
				}
			}
			So(verifiable, ShouldEqual, 1)
		})
	})

	Convey("Given no signals at all", t, func() {
		p := g.Generate(growth.Input{Signals: model.EmptySignals(wednesday), Now: wednesday})
		So(p.FocusSkill, ShouldEqual, "Go")
		So(p.Mode, ShouldEqual, model.ModeMicroLearning)
	})

	Convey("Given a four week streak", t, func() {
		for _, sig := range []model.RawSignals{
			signals(12, map[string]int64{"Python": 90000}),
			signals(1, map[string]int64{"Go": 10}),
			signals(80, nil),
		} {
			p := g.Generate(growth.Input{Signals: sig, Streak: 4, Now: wednesday})
			So(p.Mode, ShouldEqual, model.ModeHardcore)
			So(p.FocusSkill, ShouldEqual, growth.HardcoreSkill)
			So(p.Tasks[0].Type, ShouldEqual, model.TaskDesign)
			So(p.Reasoning, ShouldContainSubstring, "HARDCORE MODE ACTIVE")
		}
	})

	Convey("Given a hardcore plan for a Python developer", t, func() {
		sig := signals(12, map[string]int64{"Python": 90000, "Go": 100})
		p := g.Generate(growth.Input{Signals: sig, Streak: 4, Now: wednesday})

		Convey("Then the code tasks verify against the primary language", func() {
			So(p.Tasks[0].Verifiable(), ShouldBeFalse)
			So(p.Tasks[1].VerifyKey, ShouldEqual, "python")
			So(p.Tasks[2].VerifyKey, ShouldEqual, "python")
		})

		Convey("Then pushing that language completes the plan", func() {
			out := p
			for _, id := range []int{1, 2, 3} {
				var err error
				_, out, err = growth.Verify(out, id, sig, wednesday)
				So(err, ShouldBeNil)
			}
			So(out.Completed, ShouldBeTrue)
		})
	})

	Convey("Given a hardcore plan without any harvested language", t, func() {
		p := g.Generate(growth.Input{Signals: model.EmptySignals(wednesday), Streak: 4, Now: wednesday})

		Convey("Then every task is manual", func() {
			for _, task := range p.Tasks {
				So(task.Verifiable(), ShouldBeFalse)
			}
		})
	})

	Convey("Given a custom streak threshold", t, func() {
		p := growth.NewGenerator(growth.WithHardcoreStreak(2)).Generate(growth.Input{Streak: 2, Now: wednesday})
		So(p.Mode, ShouldEqual, model.ModeHardcore)
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a Rust deep dive plan", t, func() {
		plan := growth.NewGenerator().Generate(growth.Input{
			UserID:  "u1",
			Signals: signals(12, map[string]int64{"Python": 90000}),
			Now:     wednesday,
		})

		Convey("When Rust code has not been pushed", func() {
			v, out, err := growth.Verify(plan, 2, signals(12, map[string]int64{"Python": 90000}), wednesday)

			Convey("Then the task stays pending", func() {
				So(err, ShouldBeNil)
				So(v.Success, ShouldBeFalse)
				So(v.Outcome, ShouldEqual, growth.OutcomeNoCode)
				So(out.Tasks[1].Status, ShouldEqual, model.TaskPending)
			})
		})

		Convey("When every task is verified against signals with Rust", func() {
			fresh := signals(15, map[string]int64{"Python": 90000, "Rust": 1200})
			out := plan
			var last growth.Verification
			for _, id := range []int{1, 2, 3} {
				v, next, err := growth.Verify(out, id, fresh, wednesday)
				So(err, ShouldBeNil)
				So(v.Success, ShouldBeTrue)
				last, out = v, next
			}

			Convey("Then the plan rolls up to completed", func() {
				So(last.PlanCompleted, ShouldBeTrue)
				So(out.Completed, ShouldBeTrue)
				So(*out.CompletedAt, ShouldEqual, wednesday)
			})

			Convey("Then the original plan is untouched", func() {
				So(plan.Completed, ShouldBeFalse)
				So(plan.Tasks[1].Status, ShouldEqual, model.TaskPending)
			})

			Convey("Then verifying again is a no-op success", func() {
				v, _, err := growth.Verify(out, 2, fresh, wednesday)
				So(err, ShouldBeNil)
				So(v.Outcome, ShouldEqual, growth.OutcomeAlready)
				So(v.PlanCompleted, ShouldBeFalse)
			})
		})

		Convey("When the task does not exist", func() {
			_, _, err := growth.Verify(plan, 99, model.RawSignals{}, wednesday)
			So(errors.Is(err, growth.ErrTaskNotFound), ShouldBeTrue)
		})
	})
}

func TestNextStreak(t *testing.T) {
	Convey("Given streak bookkeeping", t, func() {
		Convey("The first check ever increments", func() {
			n, at, moved := growth.NextStreak(0, nil, wednesday)
			So(n, ShouldEqual, 1)
			So(moved, ShouldBeTrue)
			So(*at, ShouldEqual, wednesday)
		})

		Convey("A second check in the same ISO week does not", func() {
			monday := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
			n, at, moved := growth.NextStreak(3, &monday, wednesday)
			So(n, ShouldEqual, 3)
			So(moved, ShouldBeFalse)
			So(*at, ShouldEqual, monday)
		})

		Convey("The ISO week spans the calendar year boundary", func() {
			dec := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)
			jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			n, _, moved := growth.NextStreak(2, &dec, jan)
			So(n, ShouldEqual, 2)
			So(moved, ShouldBeFalse)
		})

		Convey("A later week increments", func() {
			prev := wednesday.AddDate(0, 0, -7)
			n, _, moved := growth.NextStreak(2, &prev, wednesday)
			So(n, ShouldEqual, 3)
			So(moved, ShouldBeTrue)
		})
	})
}
