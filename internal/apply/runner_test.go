package apply

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/browser/browsertest"
	"go-easyapply-automation/internal/dedup"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/reporter"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/search"
	"go-easyapply-automation/internal/store"
)

type recorder struct {
	outcomes  []models.Outcome
	summaries []reporter.Summary
}

func (r *recorder) Report(_ context.Context, o models.Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorder) Summary(_ context.Context, s reporter.Summary) error {
	r.summaries = append(r.summaries, s)
	return nil
}

func (f *fixture) newCard(title string) *browsertest.Element {
	c := browsertest.NewElement(title + "\nAcme Tech Systems\nRemote, United States")
	c.OnClick = f.card.OnClick
	return c
}

// serveCards makes every navigation render a fresh page of cards built by titles.
func (f *fixture) serveCards(titles func(visit int) []string) {
	visit := 0
	f.page.OnNavigate = func(string) {
		visit++
		var cards []*browsertest.Element
		for _, title := range titles(visit) {
			cards = append(cards, f.newCard(title))
		}
		f.page.Set(f.pattern(rules.RoleJobCard), cards...)
	}
}

func (f *fixture) runner(opts RunOptions, st store.Store, rep reporter.Reporter, seen SeenRecorder) *Runner {
	return f.runnerOn(f.page, opts, st, rep, seen)
}

// runnerOn is runner with the navigator driving session instead of f.page.
func (f *fixture) runnerOn(session browser.Session, opts RunOptions, st store.Store, rep reporter.Reporter, seen SeenRecorder) *Runner {
	nav := search.NewNavigator(session, f.deps.Resolver, f.rules, browser.Pacer{}, nil)
	nav.CardWait = 20 * time.Millisecond
	nav.ScrollSteps = 0
	if opts.Keywords == nil {
		opts.Keywords = []string{"go intern"}
	}
	return NewRunner(f.engine(), nav, st, rep, seen, opts, nil)
}

func TestRunnerStopsAtApplicationCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.serveCards(func(int) []string { return []string{"Go Intern", "Backend Intern"} })

	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer st.Close()
	cache := dedup.NewJobCache(t.TempDir(), 0, nil)
	f.deps.Seen = cache
	rep := &recorder{}

	sum, err := f.runner(RunOptions{MaxPages: 1, MaxApplications: 1}, st, rep, cache).Run(ctx)
	require.NoError(t, err)

	require.Len(t, sum.Outcomes, 1)
	assert.Equal(t, models.StateSubmitted, sum.Outcomes[0].State)
	assert.Equal(t, sum.RunID, sum.Outcomes[0].RunID)
	assert.Len(t, rep.outcomes, 1)
	require.Len(t, rep.summaries, 1)
	assert.NoError(t, rep.summaries[0].Err)

	stored, err := st.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sum.Outcomes[0].ID, stored[0].ID)

	assert.True(t, cache.IsSeen("go intern|acme tech systems|remote, united states"))
	assert.False(t, cache.IsSeen("backend intern|acme tech systems|remote, united states"))
}

func TestRunnerSkipsRepeatedListing(t *testing.T) {
	f := newFixture(t)
	f.serveCards(func(int) []string { return []string{"Go Intern", "Go Intern"} })
	cache := dedup.NewJobCache(t.TempDir(), 0, nil)
	f.deps.Seen = cache

	sum, err := f.runner(RunOptions{MaxPages: 1}, nil, nil, cache).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Outcomes, 2)
	assert.Equal(t, models.StateSubmitted, sum.Outcomes[0].State)
	assert.Equal(t, models.StateSkipped, sum.Outcomes[1].State)
	assert.Equal(t, models.ErrDuplicate, sum.Outcomes[1].ErrorKind)
}

func TestRunnerPaginates(t *testing.T) {
	f := newFixture(t)
	f.serveCards(func(visit int) []string { return []string{fmt.Sprintf("Go Intern %d", visit)} })

	sum, err := f.runner(RunOptions{MaxPages: 2, CardsPerPage: 25}, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Outcomes, 2)
	assert.Equal(t, "Go Intern 1", sum.Outcomes[0].Title)
	assert.Equal(t, "Go Intern 2", sum.Outcomes[1].Title)
	require.Len(t, f.page.Visited, 2)
	assert.Contains(t, f.page.Visited[1], "start=25")
}

func TestRunnerAbortsOnSessionLoss(t *testing.T) {
	f := newFixture(t)
	f.serveCards(func(int) []string { return []string{"Go Intern", "Backend Intern"} })
	f.card.OnClick = func() error {
		f.page.Lost = true
		return nil
	}
	rep := &recorder{}

	sum, err := f.runner(RunOptions{MaxPages: 3}, nil, rep, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionLost)

	require.Len(t, sum.Outcomes, 1)
	assert.Equal(t, models.ErrSessionLost, sum.Outcomes[0].ErrorKind)
	require.Len(t, rep.summaries, 1)
	assert.ErrorIs(t, rep.summaries[0].Err, ErrSessionLost)
}

func TestRunnerNoResults(t *testing.T) {
	f := newFixture(t)
	f.page.Remove(f.pattern(rules.RoleJobCard))

	sum, err := f.runner(RunOptions{MaxPages: 1}, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Outcomes)
}

// flakySession fails the navigations whose 1-based call number is in failOn.
type flakySession struct {
	*browsertest.Page
	failOn map[int]bool
	calls  int
}

func (s *flakySession) Navigate(ctx context.Context, url string) error {
	s.calls++
	if s.failOn[s.calls] {
		return fmt.Errorf("navigate %s: %w", url, browser.ErrTimeout)
	}
	return s.Page.Navigate(ctx, url)
}

func TestRunnerContinuesAfterSearchFailure(t *testing.T) {
	f := newFixture(t)
	f.serveCards(func(visit int) []string { return []string{fmt.Sprintf("Go Intern %d", visit)} })
	session := &flakySession{Page: f.page, failOn: map[int]bool{1: true}}
	opts := RunOptions{Keywords: []string{"kw1", "kw2"}, MaxPages: 1}

	sum, err := f.runnerOn(session, opts, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Outcomes, 1)
	assert.Equal(t, models.StateSubmitted, sum.Outcomes[0].State)
	require.Len(t, f.page.Visited, 1)
	assert.Contains(t, f.page.Visited[0], "keywords=kw2")
}

func TestRunnerEndsKeywordWhenPagingFails(t *testing.T) {
	f := newFixture(t)
	f.serveCards(func(visit int) []string { return []string{fmt.Sprintf("Go Intern %d", visit)} })
	session := &flakySession{Page: f.page, failOn: map[int]bool{2: true}}
	opts := RunOptions{Keywords: []string{"kw1", "kw2"}, MaxPages: 2, CardsPerPage: 25}

	sum, err := f.runnerOn(session, opts, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	// kw1 page 1, then kw2 pages 1 and 2.
	require.Len(t, sum.Outcomes, 3)
	require.Len(t, f.page.Visited, 3)
	assert.Contains(t, f.page.Visited[1], "keywords=kw2")
	assert.Contains(t, f.page.Visited[2], "start=25")
}
