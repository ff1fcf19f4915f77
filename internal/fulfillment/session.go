package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/llm"
	"templatefill-backend/internal/render"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/templates"
)

// Step is a state of the fulfillment workflow.
type Step string

const (
	StepCollectingBrief Step = "collecting_brief"
	StepReviewingValues Step = "reviewing_values"
	StepRendered        Step = "rendered"
)

// briefKey is the single pseudo-field the whole brief is sent under.
const briefKey = "userContext"

// Renderer turns values into an artifact. It must not fail.
type Renderer interface {
	Render(ctx context.Context, tpl templates.Template, values map[string]string, suggestion *llm.SuggestionResult) render.Artifact
}

// Deliverer hands a rendered artifact to the user-facing delivery surface.
type Deliverer interface {
	Deliver(ctx context.Context, p auth.Principal, d artifacts.Delivery) (artifacts.Record, error)
}

// Deps are the collaborators a session calls out to.
type Deps struct {
	Suggester llm.Suggester
	Renderer  Renderer
	Deliverer Deliverer
}

// Session coordinates one user's pass through a template: brief, review,
// render and delivery. At most one suggestion, render or delivery call is in
// flight at a time. Close and Back advance the generation so a result that
// arrives afterwards is dropped rather than applied.
type Session struct {
	id        string
	principal auth.Principal
	tpl       templates.Template
	deps      Deps
	now       func() time.Time

	mu         sync.Mutex
	step       Step
	brief      string
	values     map[string]string
	suggestion *llm.SuggestionResult
	artifact   *render.Artifact
	receipt    *artifacts.Record
	revision   int
	busy       bool
	closed     bool
	generation uint64
	lastActive time.Time
}

// NewSession starts a session in CollectingBrief. Templates without
// placeholders are refused.
func NewSession(id string, p auth.Principal, tpl templates.Template, deps Deps, now func() time.Time) (*Session, error) {
	if !tpl.Fillable() {
		return nil, ErrNoPlaceholders
	}
	if now == nil {
		now = time.Now
	}
	values := make(map[string]string, len(tpl.Placeholders))
	for _, name := range tpl.Placeholders {
		values[name] = ""
	}
	tpl.Placeholders = append([]string(nil), tpl.Placeholders...)
	return &Session{
		id:         id,
		principal:  p,
		tpl:        tpl,
		deps:       deps,
		now:        now,
		step:       StepCollectingBrief,
		values:     values,
		lastActive: now(),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Template() templates.Template { return s.tpl }

func (s *Session) Principal() auth.Principal { return s.principal }

// SubmitBrief asks the suggestion engine for values. On success the session
// moves to ReviewingValues; on failure it stays where it was.
func (s *Session) SubmitBrief(ctx context.Context, brief string) error {
	s.mu.Lock()
	if err := s.enterLocked(StepCollectingBrief); err != nil {
		s.mu.Unlock()
		return err
	}
	s.brief = brief
	gen := s.generation
	fields := append([]string(nil), s.tpl.Placeholders...)
	s.mu.Unlock()

	res, err := s.deps.Suggester.Suggest(ctx, llm.SuggestInput{
		Fields:   fields,
		Context:  llm.BuildContext(s.tpl.Name, fields),
		UserData: map[string]string{briefKey: brief},
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if staleErr := s.leaveLocked(gen); staleErr != nil {
		return staleErr
	}
	if err != nil {
		return err
	}

	for name, value := range res.ValuesByField {
		if _, ok := s.values[name]; ok {
			s.values[name] = value
		}
	}
	s.suggestion = &res
	s.step = StepReviewingValues
	return nil
}

// UpdateField sets one value while reviewing.
func (s *Session) UpdateField(name, value string) error {
	return s.UpdateFields(map[string]string{name: value})
}

// UpdateFields applies several edits at once; nothing is applied when any
// name is not a placeholder of the template.
func (s *Session) UpdateFields(edits map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(StepReviewingValues); err != nil {
		return err
	}
	for name := range edits {
		if _, ok := s.values[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	for name, value := range edits {
		s.values[name] = value
	}
	s.lastActive = s.now()
	return nil
}

// CanConfirm reports whether every placeholder has a non-empty value.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step == StepReviewingValues && len(s.missingLocked()) == 0
}

// Confirm renders the current values. It refuses without calling the
// renderer while any placeholder is blank.
func (s *Session) Confirm(ctx context.Context) (render.Artifact, error) {
	s.mu.Lock()
	if err := s.checkLocked(StepReviewingValues); err != nil {
		s.mu.Unlock()
		return render.Artifact{}, err
	}
	if missing := s.missingLocked(); len(missing) > 0 {
		s.mu.Unlock()
		return render.Artifact{}, &ConfirmDisabledError{Missing: missing}
	}
	s.busy = true
	s.lastActive = s.now()
	gen := s.generation
	values := copyValues(s.values)
	suggestion := s.suggestion
	s.mu.Unlock()

	art := s.deps.Renderer.Render(ctx, s.tpl, values, suggestion)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.leaveLocked(gen); err != nil {
		return render.Artifact{}, err
	}
	if len(art.Bytes) == 0 && art.Locator == "" {
		return render.Artifact{}, ErrRenderFailed
	}
	s.artifact = &art
	s.receipt = nil
	s.revision++
	s.step = StepRendered
	return art, nil
}

// Back steps one state backwards. From Rendered the artifact is dropped so
// the values can be edited and rendered again. Values are always kept.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	switch s.step {
	case StepReviewingValues:
		s.step = StepCollectingBrief
	case StepRendered:
		s.step = StepReviewingValues
		s.artifact = nil
		s.receipt = nil
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, s.step)
	}
	s.generation++
	s.lastActive = s.now()
	return nil
}

// Deliver hands the artifact to the delivery surface once. Later calls return
// the first receipt. A failed delivery leaves the session Rendered so the
// caller may retry.
func (s *Session) Deliver(ctx context.Context) (artifacts.Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return artifacts.Record{}, ErrSessionClosed
	}
	if s.step != StepRendered || s.artifact == nil {
		s.mu.Unlock()
		return artifacts.Record{}, fmt.Errorf("%w: nothing rendered to deliver", ErrInvalidTransition)
	}
	if s.receipt != nil {
		rec := *s.receipt
		s.mu.Unlock()
		return rec, nil
	}
	if s.busy {
		s.mu.Unlock()
		return artifacts.Record{}, ErrBusy
	}
	s.busy = true
	s.lastActive = s.now()
	gen := s.generation
	d := artifacts.Delivery{
		TemplateID: s.tpl.ID,
		SessionID:  s.id,
		Revision:   s.revision,
		Artifact:   *s.artifact,
	}
	s.mu.Unlock()

	rec, err := s.deps.Deliverer.Deliver(ctx, s.principal, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	if staleErr := s.leaveLocked(gen); staleErr != nil {
		return artifacts.Record{}, staleErr
	}
	if err != nil {
		return artifacts.Record{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	s.receipt = &rec
	s.artifact.Locator = rec.Locator()
	return rec, nil
}

// Artifact returns the rendered artifact while in Rendered.
func (s *Session) Artifact() (render.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepRendered || s.artifact == nil {
		return render.Artifact{}, false
	}
	return *s.artifact, true
}

// Close discards the session. Results still in flight are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
}

// IsBusy reports whether a suggestion, render or delivery call is in flight.
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot is a point-in-time copy of the session's state.
type Snapshot struct {
	ID           string
	TemplateID   string
	TemplateName string
	Placeholders []string
	Step         Step
	Brief        string
	Values       map[string]string
	Missing      []string
	CanConfirm   bool
	Busy         bool
	Closed       bool
	Suggestion   *llm.SuggestionResult
	Artifact     *render.Artifact
	Receipt      *artifacts.Record
	Revision     int
}

// Snapshot copies the current state. Artifact bytes are not copied.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:           s.id,
		TemplateID:   s.tpl.ID,
		TemplateName: s.tpl.Name,
		Placeholders: append([]string(nil), s.tpl.Placeholders...),
		Step:         s.step,
		Brief:        s.brief,
		Values:       copyValues(s.values),
		Missing:      s.missingLocked(),
		Busy:         s.busy,
		Closed:       s.closed,
		Revision:     s.revision,
	}
	snap.CanConfirm = s.step == StepReviewingValues && len(snap.Missing) == 0
	if s.suggestion != nil {
		sug := *s.suggestion
		snap.Suggestion = &sug
	}
	if s.artifact != nil {
		art := *s.artifact
		art.Bytes = nil
		snap.Artifact = &art
	}
	if s.receipt != nil {
		rec := *s.receipt
		snap.Receipt = &rec
	}
	return snap
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return 0
	}
	return now.Sub(s.lastActive)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// enterLocked starts a suspending call from the given step.
func (s *Session) enterLocked(want Step) error {
	if err := s.checkLocked(want); err != nil {
		return err
	}
	s.busy = true
	s.lastActive = s.now()
	return nil
}

func (s *Session) checkLocked(want Step) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.busy {
		return ErrBusy
	}
	if s.step != want {
		return fmt.Errorf("%w: session is %s, not %s", ErrInvalidTransition, s.step, want)
	}
	return nil
}

// leaveLocked ends a suspending call and reports whether its result is stale.
func (s *Session) leaveLocked(gen uint64) error {
	s.busy = false
	s.lastActive = s.now()
	if s.closed {
		return ErrSessionClosed
	}
	if gen != s.generation {
		return ErrStale
	}
	return nil
}

func (s *Session) missingLocked() []string {
	var missing []string
	for _, name := range s.tpl.Placeholders {
		if strings.TrimSpace(s.values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
