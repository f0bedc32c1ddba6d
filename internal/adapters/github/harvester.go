// Package github harvests repository and activity signals from the GitHub
// REST API. A harvest never fails: every unit of work that errors is recorded
// as a skipped unit and the aggregate is built from whatever succeeded.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"

	"github.com/okian/careerpulse/internal/domain/dedupe"
	"github.com/okian/careerpulse/internal/domain/keyword"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	userAgent      = "careerpulse-harvester"
	rawMediaType   = "application/vnd.github.raw"
	activityWindow = 30 * 24 * time.Hour
	pushEventType  = "PushEvent"
)

// Unit names used in skipped units and metrics.
const (
	unitAccount   = "account"
	unitRepos     = "repos"
	unitLanguages = "languages"
	unitManifest  = "manifest"
	unitEvents    = "events"
)

// Harvester collects RawSignals for the account behind a token.
type Harvester struct {
	rawBaseURL  string
	baseURL     *url.URL
	repoLimit   int
	concurrency int64
	chunkSize   int
	timeout     time.Duration
	dictionary  keyword.Dictionary
	manifests   []string
	matchers    map[string]*keyword.Matcher
	httpClient  *http.Client
	now         func() time.Time
	logger      logger.Logger
}

// NewHarvester creates a Harvester.
func NewHarvester(opts ...Option) (*Harvester, error) {
	h := &Harvester{
		repoLimit:   DefaultRepoLimit,
		concurrency: DefaultConcurrency,
		chunkSize:   keyword.DefaultChunkSize,
		timeout:     DefaultTimeout,
		dictionary:  keyword.DefaultDictionary(),
		httpClient:  http.DefaultClient,
		now:         time.Now,
		logger:      logger.Get().Named("harvester"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.rawBaseURL != "" {
		raw := h.rawBaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%q: %w", h.rawBaseURL, ErrInvalidBaseURL)
		}
		h.baseURL = u
	}
	h.manifests = h.dictionary.Manifests()
	h.matchers = h.dictionary.Matchers()
	return h, nil
}

// Concurrency is the in-flight sub-request bound.
func (h *Harvester) Concurrency() int { return int(h.concurrency) }

func (h *Harvester) client(ctx context.Context, token string) *github.Client {
	base := h.httpClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		base = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, h.httpClient), ts)
	}
	c := github.NewClient(base)
	c.UserAgent = userAgent
	if h.baseURL != nil {
		c.BaseURL = h.baseURL
	}
	return c
}

// aggregate is the commutative accumulator shared by all sub-requests.
type aggregate struct {
	mu         sync.Mutex
	bytes      map[string]int64
	repoBytes  map[string]int64
	frameworks map[string]struct{}
	skipped    []model.SkippedUnit
	commits    int
}

func newAggregate() *aggregate {
	return &aggregate{
		bytes:      make(map[string]int64),
		repoBytes:  make(map[string]int64),
		frameworks: make(map[string]struct{}),
	}
}

func (a *aggregate) addLanguages(repo string, langs map[string]int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for lang, n := range langs {
		if n <= 0 {
			continue
		}
		a.bytes[lang] += int64(n)
		a.repoBytes[repo] += int64(n)
	}
}

func (a *aggregate) addFrameworks(fws []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, fw := range fws {
		a.frameworks[fw] = struct{}{}
	}
}

func (a *aggregate) skip(unit string, err error) {
	reason := Classify(err)
	metrics.RecordHarvestSkipped(string(reason))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped = append(a.skipped, model.SkippedUnit{Unit: unit, Reason: reason, Detail: err.Error()})
}

func (a *aggregate) signals(now time.Time) model.RawSignals {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := model.EmptySignals(now)
	for lang, n := range a.bytes {
		s.LanguageBytes[lang] = n
	}
	for fw := range a.frameworks {
		s.DetectedFrameworks = append(s.DetectedFrameworks, fw)
	}
	sort.Strings(s.DetectedFrameworks)

	var top int64 = -1
	for repo, n := range a.repoBytes {
		if n > top || (n == top && repo < s.TopRepo) {
			s.TopRepo, top = repo, n
		}
	}

	s.CommitsLast30Days = a.commits
	s.Velocity = model.VelocityFromCommits(a.commits)
	sort.Slice(a.skipped, func(i, j int) bool { return a.skipped[i].Unit < a.skipped[j].Unit })
	s.Skipped = append([]model.SkippedUnit(nil), a.skipped...)
	return s
}

// Harvest returns the signals of the account that owns token. It always
// returns a valid bundle: when the account lookup fails the bundle is empty
// with one skipped unit.
func (h *Harvester) Harvest(ctx context.Context, token string) model.RawSignals {
	start := time.Now()
	defer func() { metrics.RecordHarvestDuration(float64(time.Since(start).Milliseconds())) }()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	client := h.client(ctx, token)
	agg := newAggregate()

	user, _, err := client.Users.Get(ctx, "")
	h.observe(unitAccount, err)
	if err != nil {
		h.logger.Warn(ctx, "account lookup failed; returning empty signals", logger.Error(err))
		agg.skip(unitAccount, err)
		return agg.signals(h.now().UTC())
	}
	login := user.GetLogin()

	sem := semaphore.NewWeighted(h.concurrency)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.harvestEvents(ctx, client, sem, agg, login)
	}()

	repos := h.listRepos(ctx, client, sem, agg)
	for _, r := range repos {
		owner, name := r.GetOwner().GetLogin(), r.GetName()
		if owner == "" {
			owner = login
		}
		if name == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.harvestLanguages(ctx, client, sem, agg, owner, name)
		}()
		for _, manifest := range h.manifests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.harvestManifest(ctx, client, sem, agg, owner, name, manifest)
			}()
		}
	}
	wg.Wait()

	s := agg.signals(h.now().UTC())
	h.logger.Info(ctx, "harvest finished",
		logger.String("login", login),
		logger.Int("repos", len(repos)),
		logger.Int("languages", len(s.LanguageBytes)),
		logger.Int("frameworks", len(s.DetectedFrameworks)),
		logger.Int("commits_30d", s.CommitsLast30Days),
		logger.Int("skipped", len(s.Skipped)),
		logger.Duration("elapsed", time.Since(start)))
	return s
}

// acquire takes one semaphore slot or records the unit as skipped.
func (h *Harvester) acquire(ctx context.Context, sem *semaphore.Weighted, agg *aggregate, unit string) bool {
	if err := sem.Acquire(ctx, 1); err != nil {
		agg.skip(unit, err)
		return false
	}
	metrics.AddHarvestInFlight(1)
	return true
}

func release(sem *semaphore.Weighted) {
	metrics.AddHarvestInFlight(-1)
	sem.Release(1)
}

func (h *Harvester) observe(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(Classify(err))
	}
	metrics.RecordHarvestRequest(endpoint, outcome)
}

func (h *Harvester) listRepos(ctx context.Context, client *github.Client, sem *semaphore.Weighted, agg *aggregate) []*github.Repository {
	if !h.acquire(ctx, sem, agg, unitRepos) {
		return nil
	}
	defer release(sem)

	repos, _, err := client.Repositories.List(ctx, "", &github.RepositoryListOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: h.repoLimit},
	})
	h.observe(unitRepos, err)
	if err != nil {
		agg.skip(unitRepos, err)
		return nil
	}
	if len(repos) > h.repoLimit {
		repos = repos[:h.repoLimit]
	}
	return repos
}

func (h *Harvester) harvestLanguages(ctx context.Context, client *github.Client, sem *semaphore.Weighted, agg *aggregate, owner, repo string) {
	unit := unitLanguages + ":" + repo
	if !h.acquire(ctx, sem, agg, unit) {
		return
	}
	defer release(sem)

	langs, _, err := client.Repositories.ListLanguages(ctx, owner, repo)
	h.observe(unitLanguages, err)
	if err != nil {
		agg.skip(unit, err)
		return
	}
	agg.addLanguages(repo, langs)
}

// harvestManifest streams one manifest through its matcher. A missing
// manifest is not a failure.
func (h *Harvester) harvestManifest(ctx context.Context, client *github.Client, sem *semaphore.Weighted, agg *aggregate, owner, repo, manifest string) {
	unit := unitManifest + ":" + repo + "/" + manifest
	matcher, ok := h.matchers[manifest]
	if !ok {
		return
	}
	if !h.acquire(ctx, sem, agg, unit) {
		return
	}
	defer release(sem)

	path := fmt.Sprintf("repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), manifest)
	req, err := client.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		agg.skip(unit, err)
		return
	}
	req.Header.Set("Accept", rawMediaType)

	resp, err := client.BareDo(ctx, req)
	if err != nil {
		if isNotFound(err) {
			metrics.RecordHarvestRequest(unitManifest, "absent")
			return
		}
		h.observe(unitManifest, err)
		agg.skip(unit, err)
		return
	}
	defer resp.Body.Close()

	body := &countingReader{r: resp.Body}
	found, err := matcher.Scan(ctx, body, h.chunkSize)
	metrics.RecordManifestBytes(int(body.n))
	h.observe(unitManifest, err)
	if err != nil {
		agg.skip(unit, err)
	}
	for _, fw := range found {
		metrics.RecordFrameworkDetected(fw)
	}
	// Frameworks matched before a mid-stream failure still count.
	agg.addFrameworks(found)
}

// harvestEvents sums push sizes within the activity window, reading at most a
// few pages and counting each event ID once.
func (h *Harvester) harvestEvents(ctx context.Context, client *github.Client, sem *semaphore.Weighted, agg *aggregate, login string) {
	if !h.acquire(ctx, sem, agg, unitEvents) {
		return
	}
	defer release(sem)

	cutoff := h.now().UTC().Add(-activityWindow)
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(eventsPerPage * maxEventPages))
	commits := 0
	opts := &github.ListOptions{PerPage: eventsPerPage}

	for page := 0; page < maxEventPages; page++ {
		events, resp, err := client.Activity.ListEventsPerformedByUser(ctx, login, false, opts)
		h.observe(unitEvents, err)
		if err != nil {
			agg.skip(fmt.Sprintf("%s:page%d", unitEvents, page+1), err)
			break
		}
		older := false
		for _, ev := range events {
			if ev.GetCreatedAt().Time.Before(cutoff) {
				older = true
				continue
			}
			if ev.GetType() != pushEventType || seen.SeenAndRecord(ctx, ev.GetID()) {
				continue
			}
			n, err := pushSize(ev)
			if err != nil {
				agg.skip(unitEvents+":"+ev.GetID(), err)
				continue
			}
			commits += n
		}
		if older || resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	agg.mu.Lock()
	agg.commits += commits
	agg.mu.Unlock()
}

// pushSize returns the commit count of a push event; a payload without a size
// counts as one commit.
func pushSize(ev *github.Event) (int, error) {
	if ev.RawPayload == nil {
		return 1, nil
	}
	payload, err := ev.ParsePayload()
	if err != nil {
		return 0, err
	}
	push, ok := payload.(*github.PushEvent)
	if !ok || push.Size == nil {
		return 1, nil
	}
	return push.GetSize(), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
