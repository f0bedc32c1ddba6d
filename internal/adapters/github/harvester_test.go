package github_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gh "github.com/google/go-github/v56/github"
	. "github.com/smartystreets/goconvey/convey"

	harvest "github.com/okian/careerpulse/internal/adapters/github"
	"github.com/okian/careerpulse/internal/domain/model"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeAPI struct {
	mux       *http.ServeMux
	manifests map[string]string
	inFlight  atomic.Int64
	maxFlight atomic.Int64
	delay     atomic.Int64
	auth      atomic.Value
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{mux: http.NewServeMux(), manifests: map[string]string{}}
	f.mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		f.auth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"login": "octo"})
	})
	f.mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"name": "api", "owner": map[string]any{"login": "octo"}},
			{"name": "web", "owner": map[string]any{"login": "octo"}},
			{"name": "broken", "owner": map[string]any{"login": "octo"}},
		})
	})
	f.mux.HandleFunc("GET /repos/{owner}/{repo}/languages", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("repo") {
		case "api":
			writeJSON(w, http.StatusOK, map[string]int{"Go": 1000, "Python": 200})
		case "web":
			writeJSON(w, http.StatusOK, map[string]int{"TypeScript": 900, "Go": 100})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		}
	})
	f.mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{file}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github.raw" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		body, ok := f.manifests[r.PathValue("repo")+"/"+r.PathValue("file")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		_, _ = w.Write([]byte(body))
	})
	f.mux.HandleFunc("GET /users/{login}/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			pushEvent("1", now.Add(-24*time.Hour), `{"size":3}`),
			pushEvent("1", now.Add(-24*time.Hour), `{"size":3}`),
			pushEvent("2", now.Add(-48*time.Hour), `{}`),
			{"id": "3", "type": "IssuesEvent", "created_at": now.Add(-72 * time.Hour).Format(time.RFC3339), "payload": map[string]any{}},
			pushEvent("4", now.Add(-40*24*time.Hour), `{"size":99}`),
		})
	})
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxFlight.Load()
		if cur <= prev || f.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	if d := time.Duration(f.delay.Load()); d > 0 {
		time.Sleep(d)
	}
	f.mux.ServeHTTP(w, r)
}

func pushEvent(id string, at time.Time, payload string) map[string]any {
	return map[string]any{
		"id":         id,
		"type":       "PushEvent",
		"created_at": at.Format(time.RFC3339),
		"payload":    json.RawMessage(payload),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newHarvester(url string, opts ...harvest.Option) *harvest.Harvester {
	opts = append([]harvest.Option{harvest.WithBaseURL(url), harvest.WithClock(clock)}, opts...)
	h, err := harvest.NewHarvester(opts...)
	So(err, ShouldBeNil)
	return h
}

func TestHarvest(t *testing.T) {
	Convey("Given a fake GitHub API with three repositories", t, func() {
		api := newFakeAPI()
		api.manifests["web/package.json"] = strings.Repeat("x", 37) + `{"dependencies": {"react": "^18.2.0"}}`
		api.manifests["api/go.mod"] = "module example.com/api\n\nrequire github.com/gin-gonic/gin v1.9.1\n"
		srv := httptest.NewServer(api)
		defer srv.Close()

		Convey("When harvesting with a small chunk size", func() {
			h := newHarvester(srv.URL, harvest.WithChunkSize(8))
			s := h.Harvest(context.Background(), "secret")

			Convey("Then languages are summed across repositories", func() {
				So(s.LanguageBytes, ShouldResemble, map[string]int64{"Go": 1100, "Python": 200, "TypeScript": 900})
				So(s.TopRepo, ShouldEqual, "api")
			})

			Convey("Then keywords split across chunks are still detected", func() {
				So(s.DetectedFrameworks, ShouldResemble, []string{"Gin", "React"})
			})

			Convey("Then push events inside the window are counted once", func() {
				So(s.CommitsLast30Days, ShouldEqual, 4)
				So(s.Velocity, ShouldEqual, model.VelocityLow)
			})

			Convey("Then only the failing languages call is skipped", func() {
				So(s.Skipped, ShouldHaveLength, 1)
				So(s.Skipped[0].Unit, ShouldEqual, "languages:broken")
				So(s.Skipped[0].Reason, ShouldEqual, model.SkipUpstream)
			})

			Convey("Then the token is sent as a bearer credential", func() {
				So(api.auth.Load(), ShouldEqual, "Bearer secret")
			})

			Convey("Then the harvest time comes from the clock", func() {
				So(s.HarvestedAt.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When concurrency is bounded", func() {
			api.delay.Store(int64(20 * time.Millisecond))
			h := newHarvester(srv.URL, harvest.WithConcurrency(harvest.MinConcurrency))
			s := h.Harvest(context.Background(), "")

			Convey("Then no more requests than the bound are in flight", func() {
				So(api.maxFlight.Load(), ShouldBeLessThanOrEqualTo, harvest.MinConcurrency)
				So(s.LanguageBytes["Go"], ShouldEqual, 1100)
			})
		})

		Convey("When concurrency is set outside the allowed range", func() {
			So(newHarvester(srv.URL, harvest.WithConcurrency(2)).Concurrency(), ShouldEqual, harvest.MinConcurrency)
			So(newHarvester(srv.URL, harvest.WithConcurrency(64)).Concurrency(), ShouldEqual, harvest.MaxConcurrency)
			So(newHarvester(srv.URL, harvest.WithConcurrency(0)).Concurrency(), ShouldEqual, harvest.DefaultConcurrency)
		})
	})

	Convey("Given an API that rejects the token", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		}))
		defer srv.Close()

		s := newHarvester(srv.URL).Harvest(context.Background(), "expired")

		Convey("Then an empty bundle is returned with the account skipped", func() {
			So(s.Empty(), ShouldBeTrue)
			So(s.Velocity, ShouldEqual, model.VelocityLow)
			So(s.Skipped, ShouldHaveLength, 1)
			So(s.Skipped[0].Unit, ShouldEqual, "account")
			So(s.Skipped[0].Reason, ShouldEqual, model.SkipUnauthorized)
		})
	})

	Convey("Given an API that rate limits repository listing", t, func() {
		api := newFakeAPI()
		mux := http.NewServeMux()
		mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
		})
		mux.Handle("/", api)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		s := newHarvester(srv.URL).Harvest(context.Background(), "")

		Convey("Then repositories are skipped as rate limited and events still count", func() {
			So(s.Skipped, ShouldHaveLength, 1)
			So(s.Skipped[0].Unit, ShouldEqual, "repos")
			So(s.Skipped[0].Reason, ShouldEqual, model.SkipRateLimited)
			So(s.LanguageBytes, ShouldBeEmpty)
			So(s.CommitsLast30Days, ShouldEqual, 4)
		})
	})

	Convey("Given an API that hangs on one repository", t, func() {
		api := newFakeAPI()
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/octo/broken/languages", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		})
		mux.Handle("/", api)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		start := time.Now()
		s := newHarvester(srv.URL, harvest.WithTimeout(300*time.Millisecond)).Harvest(context.Background(), "")

		Convey("Then the harvest returns at the deadline with the slow unit canceled", func() {
			So(time.Since(start), ShouldBeLessThan, 3*time.Second)
			So(s.LanguageBytes["Go"], ShouldEqual, 1100)
			var reasons []model.SkippedReason
			for _, u := range s.Skipped {
				if u.Unit == "languages:broken" {
					reasons = append(reasons, u.Reason)
				}
			}
			So(reasons, ShouldResemble, []model.SkippedReason{model.SkipCanceled})
		})
	})

	Convey("Given an unparsable base URL", t, func() {
		_, err := harvest.NewHarvester(harvest.WithBaseURL("::not a url"))

		Convey("Then construction fails", func() {
			So(errors.Is(err, harvest.ErrInvalidBaseURL), ShouldBeTrue)
		})
	})
}

func TestClassify(t *testing.T) {
	status := func(code int, header ...string) error {
		resp := &http.Response{StatusCode: code, Header: http.Header{}}
		if len(header) == 2 {
			resp.Header.Set(header[0], header[1])
		}
		return &gh.ErrorResponse{Response: resp}
	}
	var syntax map[string]any

	Convey("Given client errors", t, func() {
		So(harvest.Classify(context.Canceled), ShouldEqual, model.SkipCanceled)
		So(harvest.Classify(fmt.Errorf("get: %w", context.DeadlineExceeded)), ShouldEqual, model.SkipCanceled)
		So(harvest.Classify(&gh.RateLimitError{}), ShouldEqual, model.SkipRateLimited)
		So(harvest.Classify(&gh.AbuseRateLimitError{}), ShouldEqual, model.SkipRateLimited)
		So(harvest.Classify(status(http.StatusUnauthorized)), ShouldEqual, model.SkipUnauthorized)
		So(harvest.Classify(status(http.StatusNotFound)), ShouldEqual, model.SkipNotFound)
		So(harvest.Classify(status(http.StatusTooManyRequests)), ShouldEqual, model.SkipRateLimited)
		So(harvest.Classify(status(http.StatusForbidden, "X-RateLimit-Remaining", "0")), ShouldEqual, model.SkipRateLimited)
		So(harvest.Classify(status(http.StatusForbidden)), ShouldEqual, model.SkipUnauthorized)
		So(harvest.Classify(status(http.StatusBadGateway)), ShouldEqual, model.SkipUpstream)
		So(harvest.Classify(json.Unmarshal([]byte("{"), &syntax)), ShouldEqual, model.SkipDecode)
		So(harvest.Classify(errors.New("dial tcp: connection refused")), ShouldEqual, model.SkipNetwork)
	})
}
