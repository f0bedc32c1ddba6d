package skill_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/skill"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScore(t *testing.T) {
	Convey("Given byte counts and claimed skills", t, func() {
		Convey("Then the base saturates at 100k bytes", func() {
			So(skill.Score("Go", 0, nil), ShouldEqual, 0)
			So(skill.Score("Go", 50_000, nil), ShouldEqual, 50)
			So(skill.Score("Go", 100_000, nil), ShouldEqual, 100)
			So(skill.Score("Go", 10_000_000, nil), ShouldEqual, 100)
		})

		Convey("Then a claim adds 20 points, capped at 100", func() {
			So(skill.Score("Go", 60_000, []string{"go"}), ShouldEqual, 80)
			So(skill.Score("Go", 0, []string{" Go "}), ShouldEqual, 20)
			So(skill.Score("Go", 95_000, []string{"Go"}), ShouldEqual, 100)
		})

		Convey("Then negative counts are treated as zero", func() {
			So(skill.Score("Go", -5, nil), ShouldEqual, 0)
		})

		Convey("Then the score is always bounded and monotonic in bytes", func() {
			r := rand.New(rand.NewSource(7))
			claims := [][]string{nil, {"Go"}}
			for i := 0; i < 500; i++ {
				b := r.Int63n(400_000)
				for _, c := range claims {
					s := skill.Score("Go", b, c)
					So(s, ShouldBeBetweenOrEqual, 0, 100)
					So(skill.Score("Go", b+1000, c), ShouldBeGreaterThanOrEqualTo, s)
				}
			}
		})
	})
}

func TestCalculator(t *testing.T) {
	Convey("Given a calculator with the default market list", t, func() {
		c := skill.NewCalculator()

		Convey("When signals are empty", func() {
			sig := model.EmptySignals(time.Now())

			Convey("Then everything is zero and nothing divides by zero", func() {
				conf := c.Compute(sig, []string{"Go"})
				So(conf, ShouldBeEmpty)
				So(skill.Average(conf), ShouldEqual, 0)
				So(c.MarketOverlap(sig), ShouldEqual, 0)
			})
		})

		Convey("When two of the top three languages are in demand", func() {
			sig := model.RawSignals{LanguageBytes: map[string]int64{
				"Go": 90_000, "Python": 50_000, "HTML": 40_000, "Rust": 100,
			}}

			Convey("Then overlap is round(2/3*100)", func() {
				So(c.MarketOverlap(sig), ShouldEqual, 67)
			})

			Convey("Then confidence covers harvested languages only", func() {
				conf := c.Compute(sig, []string{"python", "Kotlin"})
				So(conf, ShouldResemble, model.SkillConfidence{"Go": 90, "Python": 70, "HTML": 40, "Rust": 0})
				So(skill.Average(conf), ShouldEqual, 50)
			})
		})

		Convey("When the market list is replaced", func() {
			c := skill.NewCalculator(skill.WithMarketSkills([]string{"html"}))
			sig := model.RawSignals{LanguageBytes: map[string]int64{"HTML": 10}}
			So(c.MarketOverlap(sig), ShouldEqual, 33)
			So(c.Market(), ShouldResemble, []string{"html"})
		})
	})
}
