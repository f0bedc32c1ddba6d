package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/metrics"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	t.Setenv("CAREERPULSE_DATABASE_PATH", ":memory:")
	t.Setenv("CAREERPULSE_GITHUB_BASE_URL", srv.URL+"/")
	t.Setenv("CAREERPULSE_OFFLOAD_WORKERS", "2")
	t.Setenv("CAREERPULSE_LOG_LEVEL", "error")
	t.Setenv("CAREERPULSE_TEST_TOKEN", "t0ken")
	t.Setenv("CAREERPULSE_METRICS_REFRESH_SECONDS", "3")

	convey.Convey("Given the careerpulse command", t, func() {
		convey.Convey("When analyze runs without a user", func() {
			_, err := run(t, "analyze")

			convey.Convey("Then it fails before touching the store", func() {
				convey.So(errors.Is(err, errMissingFlag), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When analyze runs with a profile", func() {
			out, err := run(t, "analyze", "--user", "u1", "--team", "platform",
				"--claimed", "go,rust", "--token-env", "CAREERPULSE_TEST_TOKEN")
			convey.So(err, convey.ShouldBeNil)

			var report struct {
				UserID string `json:"user_id"`
				Empty  bool   `json:"empty"`
			}
			convey.So(json.Unmarshal([]byte(out), &report), convey.ShouldBeNil)

			convey.Convey("Then a full report is printed", func() {
				convey.So(report.UserID, convey.ShouldEqual, "u1")
				convey.So(report.Empty, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When benchmark runs for an unknown user", func() {
			out, err := run(t, "benchmark", "--user", "ghost", "--hire", "40")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the report is empty", func() {
				var report struct {
					Empty bool `json:"empty"`
				}
				convey.So(json.Unmarshal([]byte(out), &report), convey.ShouldBeNil)
				convey.So(report.Empty, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When retention runs on a fresh store", func() {
			out, err := run(t, "retention", "--days", "30")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then nothing is deleted", func() {
				var res map[string]int
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res["deleted"], convey.ShouldEqual, 0)
				convey.So(res["days"], convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When any command runs", func() {
			_, err := run(t, "retention", "--days", "30")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the configured gauge refresh drives the metrics package", func() {
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 3*time.Second)
			})
		})

		convey.Convey("When retention gets a negative window", func() {
			_, err := run(t, "retention", "--days", "-1")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When trust runs", func() {
			out, err := run(t, "trust", "--user", "u1", "--notes", "3")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the trust block is printed", func() {
				var res map[string]json.RawMessage
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res, convey.ShouldContainKey, "trust")
			})
		})
	})
}

func TestMergeProfile(t *testing.T) {
	base := model.Profile{UserID: "u1", Team: "platform", Company: "Acme", StreakCount: 2}
	got := mergeProfile(base, profileFlags{org: "infra", claimed: []string{"Go"}})

	if got.Team != "platform" || got.Company != "Acme" {
		t.Fatalf("existing fields overwritten: %+v", got)
	}
	if got.Organization != "infra" || len(got.ClaimedSkills) != 1 {
		t.Fatalf("flags not applied: %+v", got)
	}
	if got.StreakCount != 2 {
		t.Fatalf("streak lost: %d", got.StreakCount)
	}
	if (profileFlags{}).set() {
		t.Fatal("empty flags reported as set")
	}
}
