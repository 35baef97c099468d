package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quizdesk/internal/domain"
)

const (
	// TickInterval is the countdown resolution.
	TickInterval = time.Second
	// FeedbackDelay is how long correctness stays on screen before advancing.
	FeedbackDelay = 1500 * time.Millisecond
)

// Status is the state of a Controller.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusInProgress      Status = "in-progress"
	StatusAwaitingAdvance Status = "awaiting-advance"
	StatusFinished        Status = "finished"
	StatusFailed          Status = "failed"
)

// QuestionView is a question without its answer key.
type QuestionView struct {
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Snapshot is the observable state of a controller.
type Snapshot struct {
	AttemptID        string            `json:"attemptId"`
	Status           Status            `json:"status"`
	Source           domain.QuizSource `json:"source,omitempty"`
	QuizID           string            `json:"quizId,omitempty"`
	QuizTitle        string            `json:"quizTitle,omitempty"`
	CurrentIndex     int               `json:"currentIndex"`
	TotalQuestions   int               `json:"totalQuestions"`
	Question         *QuestionView     `json:"question,omitempty"`
	Selected         *int              `json:"selected"`
	Correct          *bool             `json:"correct,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Progress         float64           `json:"progress"`
	Error            string            `json:"error,omitempty"`
	Outcome          *Outcome          `json:"outcome,omitempty"`
}

// Progress is the completed fraction shown while question index is on screen.
func Progress(index, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(index+1) / float64(total)
}

// ControllerDeps are the collaborators a Controller resolves quizzes and delivers results with.
type ControllerDeps struct {
	Quizzes QuizRepository
	Catalog Catalog
	Handoff *Handoff
	Clock   Clock
	// OnFinished runs once per delivered outcome, outside the controller lock.
	OnFinished func(*Controller)
}

type attempt struct {
	quiz         domain.Quiz
	source       domain.QuizSource
	current      int
	answers      map[int]int
	selected     int
	hasSelection bool
	correct      bool
	remaining    int
}

type sealed struct {
	gen       uint64
	result    domain.Result
	questions []domain.Question
	done      chan struct{}
}

// Controller runs one timed attempt at a time for one user.
//
// Every timer callback carries the generation it was armed for; Load, Close
// and replacement bump the generation so stale callbacks fall through.
type Controller struct {
	id         string
	key        string
	identity   domain.Identity
	quizzes    QuizRepository
	catalog    Catalog
	handoff    *Handoff
	clock      Clock
	onFinished func(*Controller)

	mu          sync.Mutex
	status      Status
	err         error
	source      domain.QuizSource
	quizID      string
	attempt     *attempt
	gen         uint64
	tick        Timer
	advance     Timer
	done        chan struct{}
	outcome     *Outcome
	closed      bool
	subscribers map[chan Snapshot]struct{}
}

// NewController is exported for infrastructure layers and tests that need a bare controller.
func NewController(id string, who domain.Identity, deps ControllerDeps) *Controller {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	handoff := deps.Handoff
	if handoff == nil {
		handoff = NewHandoff(nil, clock, 0)
	}
	return &Controller{
		id:          id,
		identity:    who,
		quizzes:     deps.Quizzes,
		catalog:     deps.Catalog,
		handoff:     handoff,
		clock:       clock,
		onFinished:  deps.OnFinished,
		status:      StatusLoading,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (c *Controller) ID() string { return c.id }

// Key is the secret an anonymous caller presents to reach this attempt.
// It is empty for attempts owned by a signed-in user.
func (c *Controller) Key() string { return c.key }

// Identity is the user the attempt belongs to.
func (c *Controller) Identity() domain.Identity { return c.identity }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err is the load error while the controller is failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Outcome returns the delivered outcome once the attempt is finished.
func (c *Controller) Outcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Load resolves a quiz and starts a fresh attempt on it, replacing any previous one.
// On failure the controller is left in StatusFailed with no attempt.
func (c *Controller) Load(ctx context.Context, source domain.QuizSource, quizID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrAttemptNotFound
	}
	c.stopTimersLocked()
	c.gen++
	gen := c.gen
	c.status = StatusLoading
	c.err = nil
	c.attempt = nil
	c.outcome = nil
	c.done = nil
	c.source, c.quizID = source, quizID
	c.broadcastLocked()
	c.mu.Unlock()

	quiz, err := c.resolve(ctx, source, quizID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen {
		// Superseded by a newer Load or torn down while fetching.
		return domain.ErrNoAttempt
	}
	if err != nil {
		c.status = StatusFailed
		c.err = err
		c.broadcastLocked()
		return err
	}

	c.attempt = &attempt{
		quiz:      quiz,
		source:    source,
		answers:   make(map[int]int, len(quiz.Questions)),
		remaining: quiz.TimeLimit * 60,
	}
	c.status = StatusInProgress
	c.done = make(chan struct{})
	c.armTickLocked(gen)
	c.broadcastLocked()
	return nil
}

// Retry reloads the last requested quiz after a failed load. It is a no-op otherwise.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	status, source, quizID := c.status, c.source, c.quizID
	c.mu.Unlock()
	if status != StatusFailed {
		return nil
	}
	return c.Load(ctx, source, quizID)
}

func (c *Controller) resolve(ctx context.Context, source domain.QuizSource, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	switch source {
	case domain.SourceCatalog:
		if c.catalog == nil {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		quiz = c.catalog.Resolve(quizID)
	case domain.SourceStore, "":
		if c.quizzes == nil {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		var err error
		quiz, err = c.quizzes.GetQuiz(ctx, quizID)
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Quiz{}, err
		}
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}
	default:
		return domain.Quiz{}, fmt.Errorf("%w: unknown source %q", domain.ErrQuizNotFound, source)
	}
	if err := checkPlayable(quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func checkPlayable(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: no questions", domain.ErrInvalidQuiz)
	}
	if quiz.TimeLimit <= 0 {
		return fmt.Errorf("%w: time limit %d", domain.ErrInvalidQuiz, quiz.TimeLimit)
	}
	for i, q := range quiz.Questions {
		if len(q.Options) < 2 || q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d", domain.ErrInvalidQuiz, i+1)
		}
	}
	return nil
}

// Select records a tentative choice for the current question.
// It is ignored while feedback for a confirmed answer is on screen.
func (c *Controller) Select(option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkRunningLocked(); err != nil {
		return err
	}
	if c.status == StatusAwaitingAdvance {
		return nil
	}
	a := c.attempt
	if option < 0 || option >= len(a.quiz.Questions[a.current].Options) {
		return domain.ErrOptionOutOfRange
	}
	a.selected, a.hasSelection = option, true
	c.broadcastLocked()
	return nil
}

// Confirm locks in the tentative choice, reports whether it is correct and
// schedules the advance after FeedbackDelay.
func (c *Controller) Confirm() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkRunningLocked(); err != nil {
		return false, err
	}
	if c.status != StatusInProgress {
		return false, domain.ErrNotInProgress
	}
	a := c.attempt
	if !a.hasSelection {
		return false, domain.ErrNoSelection
	}
	a.correct = a.selected == a.quiz.Questions[a.current].CorrectAnswer
	c.status = StatusAwaitingAdvance
	gen := c.gen
	c.advance = c.clock.AfterFunc(FeedbackDelay, func() { c.onAdvance(gen) })
	c.broadcastLocked()
	return a.correct, nil
}

// Finish ends the attempt, flushing any tentative choice, and delivers the result.
// Calling it again returns the same outcome without delivering twice.
func (c *Controller) Finish(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, domain.ErrAttemptNotFound
	}
	if c.status == StatusFinished {
		done, gen := c.done, c.gen
		c.mu.Unlock()
		return c.awaitOutcome(ctx, done, gen)
	}
	if !c.runningLocked() {
		c.mu.Unlock()
		return Outcome{}, domain.ErrNoAttempt
	}
	s := c.sealLocked()
	c.mu.Unlock()
	return c.deliver(ctx, s), nil
}

// Close tears the controller down: timers are stopped and no callback mutates it afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.gen++
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.runningLocked() {
		c.mu.Unlock()
		return
	}
	c.tick = nil
	c.attempt.remaining--
	if c.attempt.remaining > 0 {
		c.armTickLocked(gen)
		c.broadcastLocked()
		c.mu.Unlock()
		return
	}
	c.attempt.remaining = 0
	s := c.sealLocked()
	c.mu.Unlock()
	c.deliver(context.Background(), s)
}

func (c *Controller) onAdvance(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.closed || c.status != StatusAwaitingAdvance {
		c.mu.Unlock()
		return
	}
	c.advance = nil
	a := c.attempt
	a.answers[a.current] = a.selected
	if a.current == len(a.quiz.Questions)-1 {
		s := c.sealLocked()
		c.mu.Unlock()
		c.deliver(context.Background(), s)
		return
	}

	a.current++
	a.selected, a.hasSelection = a.answers[a.current]
	a.correct = false
	c.status = StatusInProgress
	c.broadcastLocked()
	c.mu.Unlock()
}

func (c *Controller) armTickLocked(gen uint64) {
	c.tick = c.clock.AfterFunc(TickInterval, func() { c.onTick(gen) })
}

func (c *Controller) stopTimersLocked() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
}

func (c *Controller) runningLocked() bool {
	return !c.closed && c.attempt != nil &&
		(c.status == StatusInProgress || c.status == StatusAwaitingAdvance)
}

func (c *Controller) checkRunningLocked() error {
	switch {
	case c.closed:
		return domain.ErrAttemptNotFound
	case c.status == StatusFinished:
		return domain.ErrAttemptFinished
	case !c.runningLocked():
		return domain.ErrNoAttempt
	}
	return nil
}

// sealLocked moves the attempt to StatusFinished and builds its result.
func (c *Controller) sealLocked() sealed {
	a := c.attempt
	if a.hasSelection {
		a.answers[a.current] = a.selected
	}
	c.stopTimersLocked()
	c.status = StatusFinished
	return sealed{
		gen:       c.gen,
		result:    c.handoff.Build(a.quiz, a.source, c.identity, a.answers),
		questions: a.quiz.Questions,
		done:      c.done,
	}
}

func (c *Controller) deliver(ctx context.Context, s sealed) Outcome {
	out := c.handoff.Deliver(ctx, s.result, s.questions)

	c.mu.Lock()
	current := c.gen == s.gen && !c.closed
	if current {
		c.outcome = &out
		c.broadcastLocked()
	}
	c.mu.Unlock()
	close(s.done)
	if current && c.onFinished != nil {
		c.onFinished(c)
	}
	return out
}

func (c *Controller) awaitOutcome(ctx context.Context, done chan struct{}, gen uint64) (Outcome, error) {
	select {
	case <-done:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.outcome == nil {
		return Outcome{}, domain.ErrNoAttempt
	}
	return *c.outcome, nil
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of state updates, starting with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ch <- c.snapshotLocked()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: drop the oldest update.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		AttemptID: c.id,
		Status:    c.status,
		Source:    c.source,
		QuizID:    c.quizID,
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	a := c.attempt
	if a == nil {
		return s
	}

	total := len(a.quiz.Questions)
	q := a.quiz.Questions[a.current]
	s.QuizTitle = a.quiz.Title
	s.CurrentIndex = a.current
	s.TotalQuestions = total
	s.RemainingSeconds = a.remaining
	s.Progress = Progress(a.current, total)
	s.Question = &QuestionView{Text: q.Text, Options: q.Options, ImageURL: q.ImageURL}
	if a.hasSelection {
		v := a.selected
		s.Selected = &v
	}
	if c.status == StatusAwaitingAdvance {
		v := a.correct
		s.Correct = &v
	}
	if c.outcome != nil {
		o := *c.outcome
		s.Outcome = &o
	}
	return s
}
