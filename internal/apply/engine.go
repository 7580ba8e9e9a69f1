// Package apply drives the Easy Apply protocol for one listing at a time:
// open the card, wait for the detail pane, open the application modal,
// autofill and advance its steps, then dismiss whatever is left open.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-easyapply-automation/internal/autofill"
	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/extract"
	"go-easyapply-automation/internal/filter"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/scoring"
	"go-easyapply-automation/internal/selector"
)

// ErrSessionLost aborts the whole run. It is browser.ErrSessionLost, so
// either sentinel matches with errors.Is.
var ErrSessionLost = browser.ErrSessionLost

const closeRounds = 3

type Timeouts struct {
	CardList    time.Duration
	DetailPane  time.Duration
	ApplyButton time.Duration
	Modal       time.Duration
	ModalClose  time.Duration
	Click       time.Duration
	Step        time.Duration
}

type Options struct {
	// MaxSteps caps primary-action clicks per attempt.
	MaxSteps int
	// MinScore skips listings scoring below it. Zero disables the gate.
	MinScore     float64
	TargetText   string
	MaxPostedAge time.Duration
	Profile      models.ProfileFieldMap
	Timeouts     Timeouts
	Pacer        browser.Pacer
}

// SeenSet answers whether a listing fingerprint was already settled.
type SeenSet interface {
	IsSeen(key string) bool
}

// Deps are the collaborators of an Engine. Scorer, Gate, Seen and
// Screenshots are optional.
type Deps struct {
	Rules       *rules.Rules
	Resolver    *selector.Resolver
	Extractor   *extract.Extractor
	Filler      *autofill.Filler
	Scorer      *scoring.Scorer
	Gate        *filter.Gate
	Seen        SeenSet
	Screenshots *browser.ScreenshotDebugger
}

// Engine runs application attempts against one session. It is not safe for
// concurrent use; the session admits one attempt at a time.
type Engine struct {
	session browser.Session
	deps    Deps
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(session browser.Session, deps Deps, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 12
	}
	return &Engine{session: session, deps: deps, opts: opts, logger: logger, now: time.Now}
}

// stop ends an attempt in a terminal state with a recorded reason.
type stop struct {
	state  models.State
	kind   models.ErrorKind
	detail string
}

func (s *stop) Error() string {
	if s.detail == "" {
		return fmt.Sprintf("%s: %s", s.state, s.kind)
	}
	return fmt.Sprintf("%s: %s: %s", s.state, s.kind, s.detail)
}

func skip(kind models.ErrorKind, format string, args ...any) error {
	return &stop{state: models.StateSkipped, kind: kind, detail: fmt.Sprintf(format, args...)}
}

func abandon(kind models.ErrorKind, format string, args ...any) error {
	return &stop{state: models.StateAbandoned, kind: kind, detail: fmt.Sprintf(format, args...)}
}

// Attempt runs the protocol for the card at index on the current results
// page and always returns exactly one outcome. The error is non-nil only
// when the run must stop: session loss or cancellation.
func (e *Engine) Attempt(ctx context.Context, index int) (models.Outcome, error) {
	a := &models.ApplicationAttempt{
		ID:        uuid.NewString(),
		Job:       models.JobRecord{Index: index},
		State:     models.StateIdle,
		StartedAt: e.now(),
	}
	log := e.logger.With(zap.String("attempt", a.ID), zap.Int("index", index))

	err := e.run(ctx, a, log)
	fatal := e.settle(a, err)

	o := a.Outcome("", e.session.URL(), e.now())
	if o.State == models.StateAbandoned && o.ErrorKind != models.ErrSessionLost && e.deps.Screenshots != nil {
		if path, err := e.deps.Screenshots.Capture(e.session, fmt.Sprintf("abandoned_%d", index)); err == nil {
			o.Screenshot = path
		}
	}
	log.Info("🏁 attempt finished",
		zap.String("state", string(o.State)),
		zap.String("reason", string(o.ErrorKind)),
		zap.Int("steps", o.StepsCompleted),
		zap.Duration("took", o.Duration()))
	return o, fatal
}

// settle maps the error that ended run onto the attempt and returns the
// part of it that must propagate.
func (e *Engine) settle(a *models.ApplicationAttempt, err error) error {
	var s *stop
	switch {
	case err == nil:
		a.State = models.StateSubmitted
		return nil
	case errors.As(err, &s):
		a.State, a.LastError, a.Detail = s.state, s.kind, s.detail
		return nil
	case errors.Is(err, browser.ErrSessionLost):
		a.State, a.LastError, a.Detail = models.StateAbandoned, models.ErrSessionLost, err.Error()
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.State, a.LastError, a.Detail = models.StateAbandoned, models.ErrCanceled, err.Error()
		return err
	default:
		a.State, a.LastError, a.Detail = models.StateAbandoned, models.ErrUnexpected, err.Error()
		return nil
	}
}

func (e *Engine) run(ctx context.Context, a *models.ApplicationAttempt, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.CloseModals(ctx); err != nil {
		return err
	}

	// Idle -> CardOpened. The card set is fetched fresh on every attempt.
	cards, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleJobCard), e.session, e.opts.Timeouts.CardList)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return skip(models.ErrNotFound, "no job cards")
		}
		return err
	}
	if a.Job.Index >= len(cards.Elements) {
		return skip(models.ErrNotFound, "card %d of %d", a.Job.Index, len(cards.Elements))
	}
	card := cards.Elements[a.Job.Index]

	job, err := e.deps.Extractor.Extract(a.Job.Index, card)
	if err != nil {
		return err
	}
	a.Job = job
	log.Info("🔎 job", zap.String("title", job.Title), zap.String("company", job.Company), zap.String("location", job.Location))

	if e.deps.Seen != nil && job.Complete() && e.deps.Seen.IsSeen(job.Fingerprint()) {
		return skip(models.ErrDuplicate, "already settled")
	}
	if e.opts.MaxPostedAge > 0 && !filter.IsRecent(job.Posted, e.now(), e.opts.MaxPostedAge) {
		return skip(models.ErrExcluded, "posted %q", job.Posted)
	}

	if err := e.click(card, log); err != nil {
		return e.blocked(err, "job card")
	}
	a.State = models.StateCardOpened
	if err := e.opts.Pacer.Settle(ctx); err != nil {
		return err
	}

	// CardOpened -> DetailLoaded
	if _, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleDetailPane), e.session, e.opts.Timeouts.DetailPane); err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return skip(models.ErrDetailLoadTimeout, "detail pane did not load in %s", e.opts.Timeouts.DetailPane)
		}
		return err
	}
	a.State = models.StateDetailLoaded

	desc, err := e.deps.Extractor.ExtractDescription(ctx, e.session)
	if err != nil {
		return err
	}
	a.Job.Description = desc

	if e.deps.Gate != nil {
		if ok, reason := e.deps.Gate.Allow(a.Job); !ok {
			return skip(models.ErrExcluded, "%s", reason)
		}
	}
	if err := e.score(ctx, a, log); err != nil {
		return err
	}

	// DetailLoaded -> ModalOpened
	apply, err := e.deps.Resolver.ResolveClickable(ctx, e.deps.Rules.Set(rules.RoleApplyButton), e.session, e.opts.Timeouts.ApplyButton)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return skip(models.ErrApplyControlUnavailable, "no enabled apply control")
		}
		return err
	}
	if err := e.click(apply, log); err != nil {
		return e.blocked(err, "apply control")
	}
	a.State = models.StateModalOpened
	defer e.cleanup(ctx, log)

	// ModalOpened -> StepInProgress
	if _, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleModal), e.session, e.opts.Timeouts.Modal); err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return skip(models.ErrModalTimeout, "modal did not open in %s", e.opts.Timeouts.Modal)
		}
		return err
	}
	log.Info("✅ modal opened")
	a.State = models.StateStepInProgress

	return e.steps(ctx, a, log)
}

// steps autofills and advances the modal until no primary action is left.
// Elements are re-resolved on every iteration since each click re-renders
// the form.
func (e *Engine) steps(ctx context.Context, a *models.ApplicationAttempt, log *zap.Logger) error {
	for {
		modal, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleModal), e.session, 0)
		if err != nil {
			if errors.Is(err, selector.ErrNotFound) {
				return nil
			}
			return err
		}
		form := modal.First()

		res, err := e.deps.Filler.Fill(ctx, e.session, form, e.opts.Profile)
		if err != nil {
			return err
		}
		log.Debug("✍️ autofill pass", zap.Int("step", a.StepsCompleted), zap.Int("bound", len(res.Bound)), zap.Int("files", res.Files))

		next, err := e.deps.Resolver.ResolveClickable(ctx, e.deps.Rules.PrimaryAction(), form, e.opts.Timeouts.Step)
		if err != nil {
			if errors.Is(err, selector.ErrNotFound) {
				return nil
			}
			return err
		}
		if a.StepsCompleted >= e.opts.MaxSteps {
			return abandon(models.ErrStepLimitReached, "primary action still present after %d steps", a.StepsCompleted)
		}

		label, _ := next.Text()
		if err := e.click(next, log); err != nil {
			return e.blocked(err, "primary action")
		}
		a.StepsCompleted++
		log.Info("➡️ step advanced", zap.Int("step", a.StepsCompleted), zap.String("action", strings.TrimSpace(label)))
		if err := e.opts.Pacer.Settle(ctx); err != nil {
			return err
		}
	}
}

// score fills the relevance score. A scoring failure only skips the listing
// when a minimum score is configured.
func (e *Engine) score(ctx context.Context, a *models.ApplicationAttempt, log *zap.Logger) error {
	if e.deps.Scorer == nil || e.opts.TargetText == "" {
		return nil
	}
	s, err := e.deps.Scorer.Score(ctx, a.Job.ScoreText(), e.opts.TargetText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn("⚠️ scoring failed", zap.Error(err))
		if e.opts.MinScore > 0 {
			return skip(models.ErrScoringFailed, "%v", err)
		}
		return nil
	}
	a.Job.RelevanceScore = &s
	log.Info("📊 relevance", zap.Float64("score", s))
	if s < e.opts.MinScore {
		return skip(models.ErrLowRelevance, "score %.1f below %.1f", s, e.opts.MinScore)
	}
	return nil
}

// click scrolls el into view and clicks it. An intercepted or timed-out
// click is retried once as a direct invocation.
func (e *Engine) click(el browser.Element, log *zap.Logger) error {
	if err := el.ScrollIntoView(); err != nil && errors.Is(err, browser.ErrSessionLost) {
		return err
	}
	err := el.Click(e.opts.Timeouts.Click)
	if err == nil {
		return nil
	}
	if !errors.Is(err, browser.ErrInteractionBlocked) && !errors.Is(err, browser.ErrTimeout) {
		return err
	}
	log.Debug("🖱️ click blocked, invoking directly", zap.Error(err))
	if derr := el.ClickDirect(); derr != nil {
		if errors.Is(derr, browser.ErrSessionLost) {
			return derr
		}
		return fmt.Errorf("%w: %v", browser.ErrInteractionBlocked, derr)
	}
	return nil
}

// blocked turns a click failure into a skip unless it must propagate.
func (e *Engine) blocked(err error, what string) error {
	if errors.Is(err, browser.ErrSessionLost) {
		return err
	}
	return skip(models.ErrInteractionBlocked, "%s: %v", what, err)
}

func (e *Engine) cleanup(ctx context.Context, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.closeBudget())
	defer cancel()
	if err := e.CloseModals(ctx); err != nil {
		log.Warn("⚠️ modal cleanup failed", zap.Error(err))
	}
}

func (e *Engine) closeBudget() time.Duration {
	if e.opts.Timeouts.ModalClose > 0 {
		return e.opts.Timeouts.ModalClose
	}
	return 10 * time.Second
}

// CloseModals dismisses any open modal: a close control by label priority,
// then a click on the overlay, then Escape. Each round waits for the modal
// to go; a confirmation dialog ("Discard") is handled by the next round.
// Failing to close is logged, never returned. Only session loss and
// cancellation are errors.
func (e *Engine) CloseModals(ctx context.Context) error {
	modalSet := e.deps.Rules.Set(rules.RoleModal)
	wait := e.closeBudget() / closeRounds

	for round := 0; round < closeRounds; round++ {
		open, err := e.deps.Resolver.Exists(ctx, modalSet, e.session, 0)
		if err != nil {
			return err
		}
		if !open {
			return nil
		}

		if err := e.dismiss(ctx); err != nil {
			return err
		}
		gone, err := e.deps.Resolver.WaitGone(ctx, modalSet, e.session, wait)
		if err != nil {
			return err
		}
		if gone {
			e.logger.Debug("🧹 modal closed", zap.Int("round", round+1))
			return nil
		}
	}
	e.logger.Warn("⚠️ modal still open after cleanup")
	return nil
}

func (e *Engine) dismiss(ctx context.Context) error {
	el, err := e.deps.Resolver.ResolveClickable(ctx, e.deps.Rules.ModalClose(), e.session, 0)
	switch {
	case err == nil:
		err = e.click(el, e.logger)
		if err == nil || errors.Is(err, browser.ErrSessionLost) {
			return err
		}
		e.logger.Debug("close control failed", zap.Error(err))
	case !errors.Is(err, selector.ErrNotFound):
		return err
	}

	m, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleModalOverlay), e.session, 0)
	switch {
	case err == nil:
		err = m.First().Click(e.opts.Timeouts.Click)
		if err == nil || errors.Is(err, browser.ErrSessionLost) {
			return err
		}
		e.logger.Debug("overlay click failed", zap.Error(err))
	case !errors.Is(err, selector.ErrNotFound):
		return err
	}

	if err := e.session.Press("Escape"); err != nil && errors.Is(err, browser.ErrSessionLost) {
		return err
	}
	return nil
}

// CardCount resolves the job cards of the current results page.
func (e *Engine) CardCount(ctx context.Context) (int, error) {
	m, err := e.deps.Resolver.Resolve(ctx, e.deps.Rules.Set(rules.RoleJobCard), e.session, e.opts.Timeouts.CardList)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(m.Elements), nil
}
