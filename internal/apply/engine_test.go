package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-easyapply-automation/internal/autofill"
	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/browser/browsertest"
	"go-easyapply-automation/internal/extract"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/scoring"
	"go-easyapply-automation/internal/selector"
)

const cardText = "Software Engineering Intern\nAcme Tech Systems\nRemote, United States"

// fixture is a results page with one card whose click loads the detail pane,
// and an apply button whose click opens modal.
type fixture struct {
	rules *rules.Rules
	page  *browsertest.Page

	card   *browsertest.Element
	detail *browsertest.Element
	apply  *browsertest.Element
	modal  *browsertest.Element
	close  *browsertest.Element

	deps Deps
	opts Options
}

func (f *fixture) pattern(role rules.Role) string { return f.rules.Set(role)[0].Pattern }

func newFixture(t *testing.T) *fixture {
	r := rules.Default()
	f := &fixture{
		rules:  r,
		page:   browsertest.NewPage(),
		card:   browsertest.NewElement(cardText),
		detail: browsertest.NewElement("About the job"),
		apply:  browsertest.NewElement("Easy Apply"),
		modal:  browsertest.NewElement("Apply to Acme Tech Systems"),
		close:  browsertest.NewElement("Dismiss"),
	}
	f.page.Set(f.pattern(rules.RoleJobCard), f.card)
	f.card.OnClick = func() error {
		f.page.Set(f.pattern(rules.RoleDetailPane), f.detail)
		f.page.Set(f.pattern(rules.RoleApplyButton), f.apply)
		return nil
	}
	f.apply.OnClick = func() error {
		f.page.Set(f.pattern(rules.RoleModal), f.modal)
		return nil
	}
	f.page.Set(rules.LabelButton("Dismiss").Pattern, f.close)
	f.close.OnClick = func() error {
		f.page.Remove(f.pattern(rules.RoleModal))
		return nil
	}

	resolver := selector.New(nil, selector.WithPollInterval(time.Millisecond))
	x := extract.New(r, resolver, nil)
	x.DescriptionWait = 0
	f.deps = Deps{
		Rules:     r,
		Resolver:  resolver,
		Extractor: x,
		Filler:    autofill.New(r, resolver, "", nil),
	}
	f.opts = Options{
		MaxSteps: 3,
		Profile: models.ProfileFieldMap{
			{Name: "first_name", Value: "Ada", Synonyms: []string{"first name"}},
		},
		Timeouts: Timeouts{
			CardList:    20 * time.Millisecond,
			DetailPane:  20 * time.Millisecond,
			ApplyButton: 20 * time.Millisecond,
			Modal:       20 * time.Millisecond,
			ModalClose:  30 * time.Millisecond,
			Click:       time.Millisecond,
			Step:        10 * time.Millisecond,
		},
	}
	return f
}

func (f *fixture) engine() *Engine {
	return NewEngine(f.page, f.deps, f.opts, zap.NewNop())
}

// withStepsFrom makes btn advance through labels; clicking the last one
// closes the modal.
func (f *fixture) withStepsFrom(labels []string, btn *browsertest.Element) {
	pattern := rules.LabelButton(labels[0]).Pattern
	btn.OnClick = func() error {
		delete(f.modal.Children, pattern)
		if len(labels) == 1 {
			f.page.Remove(f.pattern(rules.RoleModal))
			return nil
		}
		next := browsertest.NewElement(labels[1])
		f.modal.With(rules.LabelButton(labels[1]).Pattern, next)
		f.withStepsFrom(labels[1:], next)
		return nil
	}
}

func TestAttemptSubmitsWithoutSteps(t *testing.T) {
	f := newFixture(t)

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StateSubmitted, o.State)
	assert.Equal(t, models.ErrNone, o.ErrorKind)
	assert.Equal(t, 0, o.StepsCompleted)
	assert.Equal(t, "Software Engineering Intern", o.Title)
	assert.Equal(t, "Acme Tech Systems", o.Company)
	assert.Equal(t, "Remote, United States", o.Location)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 1, f.card.Clicks)
	assert.Equal(t, 1, f.close.Clicks, "modal dismissed on the way out")
}

func TestAttemptAdvancesSteps(t *testing.T) {
	f := newFixture(t)
	first := browsertest.NewElement("").Attr("placeholder", "First name")
	f.modal.With(f.pattern(rules.RoleTextInput), first)

	next := browsertest.NewElement("Next")
	f.modal.With(rules.LabelButton("Next").Pattern, next)
	f.withStepsFrom([]string{"Next", "Review", "Submit application"}, next)

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StateSubmitted, o.State)
	assert.Equal(t, 3, o.StepsCompleted)
	assert.Equal(t, "Ada", first.Filled)
	assert.Equal(t, 0, f.close.Clicks, "modal already gone")
}

func TestAttemptStepCeiling(t *testing.T) {
	f := newFixture(t)
	next := browsertest.NewElement("Next")
	f.modal.With(rules.LabelButton("Next").Pattern, next)
	f.deps.Screenshots = browser.NewScreenshotDebugger(t.TempDir(), zap.NewNop())

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StateAbandoned, o.State)
	assert.Equal(t, models.ErrStepLimitReached, o.ErrorKind)
	assert.Equal(t, 3, o.StepsCompleted)
	assert.Equal(t, 3, next.Clicks)
	assert.NotEmpty(t, o.Screenshot)
	assert.Len(t, f.page.Shots, 1)
}

func TestAttemptSkips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		index int
		want  models.ErrorKind
	}{
		{
			name:  "card index out of range",
			index: 5,
			want:  models.ErrNotFound,
		},
		{
			name:  "detail pane never loads",
			setup: func(f *fixture) { f.card.OnClick = nil },
			want:  models.ErrDetailLoadTimeout,
		},
		{
			name:  "apply control disabled",
			setup: func(f *fixture) { f.apply.Disabled = true },
			want:  models.ErrApplyControlUnavailable,
		},
		{
			name:  "apply control aria-disabled",
			setup: func(f *fixture) { f.apply.Attr("aria-disabled", "true") },
			want:  models.ErrApplyControlUnavailable,
		},
		{
			name:  "apply link with bare disabled",
			setup: func(f *fixture) { f.apply.Attr("disabled", "") },
			want:  models.ErrApplyControlUnavailable,
		},
		{
			name:  "modal never appears",
			setup: func(f *fixture) { f.apply.OnClick = nil },
			want:  models.ErrModalTimeout,
		},
		{
			name: "click blocked twice",
			setup: func(f *fixture) {
				f.apply.ClickErr = browser.ErrInteractionBlocked
				f.apply.DirectErr = errors.New("element is detached")
			},
			want: models.ErrInteractionBlocked,
		},
		{
			name: "duplicate listing",
			setup: func(f *fixture) {
				f.deps.Seen = seenSet{"software engineering intern|acme tech systems|remote, united states": true}
			},
			want: models.ErrDuplicate,
		},
		{
			name: "low relevance",
			setup: func(f *fixture) {
				f.deps.Scorer = scoring.NewScorer(scoring.HashingEncoder{})
				f.opts.TargetText = "marine biology field research vessel"
				f.opts.MinScore = 90
			},
			want: models.ErrLowRelevance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			o, err := f.engine().Attempt(context.Background(), tt.index)
			require.NoError(t, err)
			assert.Equal(t, models.StateSkipped, o.State)
			assert.Equal(t, tt.want, o.ErrorKind)
			assert.NotEmpty(t, o.Detail)
		})
	}
}

type seenSet map[string]bool

func (s seenSet) IsSeen(key string) bool { return s[key] }

func TestAttemptDirectClickAfterInterception(t *testing.T) {
	f := newFixture(t)
	f.apply.ClickErr = browser.ErrInteractionBlocked

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, o.State)
	assert.Equal(t, 1, f.apply.Clicks)
	assert.Equal(t, 1, f.apply.DirectClicks)
}

func TestAttemptRecordsRelevance(t *testing.T) {
	f := newFixture(t)
	f.deps.Scorer = scoring.NewScorer(scoring.HashingEncoder{})
	f.opts.TargetText = cardText

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, o.RelevanceScore)
	assert.Greater(t, *o.RelevanceScore, 50.0)
}

func TestAttemptSessionLost(t *testing.T) {
	f := newFixture(t)
	f.card.OnClick = func() error {
		f.page.Lost = true
		return nil
	}

	o, err := f.engine().Attempt(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.Equal(t, models.StateAbandoned, o.State)
	assert.Equal(t, models.ErrSessionLost, o.ErrorKind)
}

func TestAttemptCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, err := f.engine().Attempt(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StateAbandoned, o.State)
	assert.Equal(t, models.ErrCanceled, o.ErrorKind)
	assert.Equal(t, 0, f.card.Clicks)
}

func TestCleanupFailureDoesNotEscalate(t *testing.T) {
	f := newFixture(t)
	f.close.ClickErr = browser.ErrInteractionBlocked
	f.close.DirectErr = errors.New("detached")

	o, err := f.engine().Attempt(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, o.State)
	assert.Contains(t, f.page.Pressed, "Escape")
}

func TestCloseModals(t *testing.T) {
	t.Run("overlay when no close control", func(t *testing.T) {
		f := newFixture(t)
		f.page.Remove(rules.LabelButton("Dismiss").Pattern)
		f.page.Set(f.pattern(rules.RoleModal), f.modal)
		overlay := browsertest.NewElement("")
		overlay.OnClick = func() error {
			f.page.Remove(f.pattern(rules.RoleModal))
			return nil
		}
		f.page.Set(f.pattern(rules.RoleModalOverlay), overlay)

		require.NoError(t, f.engine().CloseModals(context.Background()))
		assert.Equal(t, 1, overlay.Clicks)
		assert.Empty(t, f.page.Pressed)
	})

	t.Run("discard confirmation takes a second round", func(t *testing.T) {
		f := newFixture(t)
		f.page.Set(f.pattern(rules.RoleModal), f.modal)
		discard := browsertest.NewElement("Discard")
		discard.OnClick = func() error {
			f.page.Remove(f.pattern(rules.RoleModal))
			return nil
		}
		f.close.OnClick = func() error {
			f.page.Remove(rules.LabelButton("Dismiss").Pattern)
			f.page.Set(rules.LabelButton("Discard").Pattern, discard)
			return nil
		}

		require.NoError(t, f.engine().CloseModals(context.Background()))
		assert.Equal(t, 1, f.close.Clicks)
		assert.Equal(t, 1, discard.Clicks)
	})

	t.Run("nothing open", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.engine().CloseModals(context.Background()))
		assert.Equal(t, 0, f.close.Clicks)
	})
}

func TestCardCount(t *testing.T) {
	f := newFixture(t)
	f.page.Set(f.pattern(rules.RoleJobCard), f.card, browsertest.NewElement("Backend Intern"))

	n, err := f.engine().CardCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f.page.Remove(f.pattern(rules.RoleJobCard))
	n, err = f.engine().CardCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
