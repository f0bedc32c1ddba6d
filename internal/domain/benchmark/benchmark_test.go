package benchmark_test

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/okian/careerpulse/internal/domain/benchmark"
	"github.com/okian/careerpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func snap(user string, score int, daysAgo int) model.RiskSnapshot {
	return model.RiskSnapshot{UserID: user, RiskScore: score, RecordedAt: base.AddDate(0, 0, -daysAgo)}
}

func TestLatestPerUser(t *testing.T) {
	Convey("Given several snapshots per user", t, func() {
		snaps := []model.RiskSnapshot{snap("u1", 25, 3), snap("u2", 80, 0), snap("u1", 20, 0), snap("u3", 50, 1)}
		original := append([]model.RiskSnapshot(nil), snaps...)
		latest := benchmark.LatestPerUser(snaps)

		So(latest, ShouldHaveLength, 3)
		So(latest[0].UserID, ShouldEqual, "u1")
		So(latest[0].RiskScore, ShouldEqual, 20)
		So(snaps, ShouldResemble, original)
	})

	Convey("Given two snapshots with the same timestamp", t, func() {
		latest := benchmark.LatestPerUser([]model.RiskSnapshot{snap("u1", 30, 0), snap("u1", 70, 0)})

		Convey("Then the later one in the input wins", func() {
			So(latest, ShouldHaveLength, 1)
			So(latest[0].RiskScore, ShouldEqual, 70)
		})
	})
}

func TestPercentile(t *testing.T) {
	Convey("Given peer scores", t, func() {
		So(benchmark.Percentile(40, []int{10, 40, 60, 90}), ShouldEqual, 50)
		So(benchmark.Percentile(5, []int{5}), ShouldEqual, 100)
		So(benchmark.Percentile(5, nil), ShouldEqual, 0)
		So(benchmark.Percentile(30, []int{10, 20, 40}), ShouldEqual, 67)
	})

	Convey("Given a team", t, func() {
		team := benchmark.NewTeam("Acme / Platform", []model.RiskSnapshot{
			snap("me", 40, 0), snap("a", 10, 0), snap("b", 60, 0), snap("c", 90, 0), snap("me", 95, 4),
		})

		Convey("Then standing counts the member itself", func() {
			st, err := team.Standing("me")
			So(err, ShouldBeNil)
			So(st.Percentile, ShouldEqual, 50)
			So(st.PeerCount, ShouldEqual, 4)
			So(st.Message, ShouldEqual, "Within Acme / Platform, you are safer than 50% of your peers.")
			So(st.Caveat, ShouldEqual, benchmark.PercentileCaveat)
		})

		Convey("Then unknown members are rejected", func() {
			_, err := team.Standing("ghost")
			So(errors.Is(err, benchmark.ErrUnknownMember), ShouldBeTrue)
		})
	})

	Convey("Given a single member team", t, func() {
		st, err := benchmark.NewTeam("", []model.RiskSnapshot{snap("solo", 70, 0)}).Standing("solo")
		So(err, ShouldBeNil)
		So(st.Percentile, ShouldEqual, 100)
		So(st.Message, ShouldContainSubstring, "your team")
	})

	Convey("The index and the linear formula agree", t, func() {
		r := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			var snaps []model.RiskSnapshot
			var scores []int
			n := 2 + r.Intn(20)
			for j := 0; j < n; j++ {
				s := r.Intn(101)
				scores = append(scores, s)
				snaps = append(snaps, snap(fmt.Sprintf("u%02d", j), s, 0))
			}
			st, err := benchmark.NewTeam("t", snaps).Standing("u00")
			So(err, ShouldBeNil)
			So(st.Percentile, ShouldEqual, benchmark.Percentile(scores[0], scores))
		}
	})
}

func TestBurnout(t *testing.T) {
	Convey("Given five member scores", t, func() {
		b := benchmark.Burnout([]int{20, 30, 40, 80, 90})
		So(b.AvgRisk, ShouldEqual, 52)
		So(b.Variance, ShouldEqual, 27)
		So(b.BurnoutScore, ShouldEqual, 42)
		So(b.Level, ShouldEqual, model.RiskMedium)
		So(b.MemberCount, ShouldEqual, 5)
	})

	Convey("Given a single member the spread is zero", t, func() {
		b := benchmark.Burnout([]int{90})
		So(b.Variance, ShouldEqual, 0)
		So(b.BurnoutScore, ShouldEqual, 54)
	})

	Convey("Given an empty team", t, func() {
		_, err := benchmark.NewTeam("t", nil).Burnout()
		So(errors.Is(err, benchmark.ErrNoData), ShouldBeTrue)
	})

	Convey("Given a team with stale duplicates", t, func() {
		b, err := benchmark.NewTeam("t", []model.RiskSnapshot{
			snap("a", 20, 0), snap("b", 30, 0), snap("c", 40, 0), snap("d", 80, 0), snap("e", 90, 0), snap("a", 99, 10),
		}).Burnout()
		So(err, ShouldBeNil)
		So(b.BurnoutScore, ShouldEqual, 42)
	})
}

func TestSimulations(t *testing.T) {
	Convey("Given a three member team", t, func() {
		snaps := []model.RiskSnapshot{snap("u1", 10, 0), snap("u2", 50, 0), snap("u3", 60, 0)}
		team := benchmark.NewTeam("t", snaps)

		Convey("When the anchor leaves", func() {
			sim, err := team.SimulateExit()
			So(err, ShouldBeNil)
			So(sim.CurrentAvg, ShouldEqual, 40)
			So(sim.NewAvg, ShouldEqual, 55)
			So(sim.Impact, ShouldEqual, 15)
			So(*sim.AnchorScore, ShouldEqual, 10)
			So(sim.AnchorUserID, ShouldEqual, "u1")
			So(team.Size(), ShouldEqual, 3)
		})
	})

	Convey("Given duplicated minimum scores", t, func() {
		scores := []int{10, 10, 40}
		sim, err := benchmark.SimulateExit(scores)
		So(err, ShouldBeNil)
		So(sim.NewAvg, ShouldEqual, 25)
		So(scores, ShouldResemble, []int{10, 10, 40})
	})

	Convey("Given a single member", t, func() {
		_, err := benchmark.SimulateExit([]int{42})
		So(errors.Is(err, benchmark.ErrTooFewMembers), ShouldBeTrue)
	})

	Convey("Given a hire into a two member team", t, func() {
		scores := []int{50, 60}
		sim, err := benchmark.SimulateHire(scores, 20)
		So(err, ShouldBeNil)
		So(sim.CurrentAvg, ShouldEqual, 55)
		So(sim.NewAvg, ShouldEqual, 43)
		So(sim.Impact, ShouldEqual, -11)
		So(scores, ShouldResemble, []int{50, 60})

		teamSim, err := benchmark.NewTeam("t", []model.RiskSnapshot{snap("a", 50, 0), snap("b", 60, 0)}).SimulateHire(20)
		So(err, ShouldBeNil)
		So(teamSim, ShouldResemble, sim)
	})
}

func TestHealthAndContributions(t *testing.T) {
	Convey("Given members with an old duplicate", t, func() {
		team := benchmark.NewTeam("t", []model.RiskSnapshot{
			snap("me", 20, 0), snap("b", 80, 0), snap("me", 25, 5), snap("c", 50, 0),
		})

		Convey("Then contributions are ranked safest first", func() {
			rank := team.Contributions("me")
			So(rank, ShouldHaveLength, 3)
			So(rank[0].UserID, ShouldEqual, "me")
			So(rank[0].Contribution, ShouldEqual, 30.0)
			So(rank[0].IsCurrentUser, ShouldBeTrue)
			So(rank[1].UserID, ShouldEqual, "c")
			So(rank[2].Contribution, ShouldEqual, -30.0)
			So(rank[2].IsCurrentUser, ShouldBeFalse)
		})

		Convey("Then health inverts the average", func() {
			h, err := team.Health()
			So(err, ShouldBeNil)
			So(h.Score, ShouldEqual, 50)
			So(h.Label, ShouldEqual, "Critical")
			So(h.MemberCount, ShouldEqual, 3)
		})
	})

	Convey("Given a healthy team", t, func() {
		h, err := benchmark.NewTeam("t", []model.RiskSnapshot{snap("a", 10, 0), snap("b", 20, 0)}).Health()
		So(err, ShouldBeNil)
		So(h.Label, ShouldEqual, "Strong")
	})

	Convey("Given an empty team", t, func() {
		So(benchmark.NewTeam("t", nil).Contributions("x"), ShouldBeEmpty)
	})
}

func TestHistory(t *testing.T) {
	Convey("Given fifteen daily snapshots", t, func() {
		var snaps []model.RiskSnapshot
		for i := 0; i < 15; i++ {
			snaps = append(snaps, snap("u1", i, 14-i))
		}
		rand.New(rand.NewSource(1)).Shuffle(len(snaps), func(i, j int) { snaps[i], snaps[j] = snaps[j], snaps[i] })

		tl := benchmark.History(snaps)

		So(tl.DataPoints, ShouldHaveLength, 12)
		So(sort.IntsAreSorted(tl.DataPoints), ShouldBeTrue)
		So(tl.DataPoints[11], ShouldEqual, 14)
		So(tl.Labels[11], ShouldEqual, "05/01")
	})
}
