package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/llm"
	"templatefill-backend/internal/render"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/templates"
)

var jane = auth.Guest("jane")

type fakeSuggester struct {
	mu      sync.Mutex
	result  llm.SuggestionResult
	err     error
	inputs  []llm.SuggestInput
	started chan struct{}
	release chan struct{}
}

func (f *fakeSuggester) Suggest(ctx context.Context, in llm.SuggestInput) (llm.SuggestionResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeRenderer struct {
	mu      sync.Mutex
	calls   int
	values  []map[string]string
	empty   bool
	started chan struct{}
	release chan struct{}
}

func (f *fakeRenderer) Render(ctx context.Context, tpl templates.Template, values map[string]string, s *llm.SuggestionResult) render.Artifact {
	f.mu.Lock()
	f.calls++
	f.values = append(f.values, values)
	n := f.calls
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.empty {
		return render.Artifact{}
	}
	return render.Artifact{
		Bytes:       []byte(fmt.Sprintf("%%PDF-1.4 render %d", n)),
		FileName:    "NDA-Agreement.pdf",
		ContentType: render.ContentTypePDF,
		CreatedAt:   time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
	}
}

func (f *fakeRenderer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeliverer struct {
	mu         sync.Mutex
	deliveries []artifacts.Delivery
	err        error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, p auth.Principal, d artifacts.Delivery) (artifacts.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return artifacts.Record{}, f.err
	}
	f.deliveries = append(f.deliveries, d)
	return artifacts.Record{
		ID:         fmt.Sprintf("art-%d", len(f.deliveries)),
		UserID:     p.UserID,
		TemplateID: d.TemplateID,
		SessionID:  d.SessionID,
		Revision:   d.Revision,
		FileName:   d.Artifact.FileName,
		MimeType:   d.Artifact.ContentType,
		SizeBytes:  int64(len(d.Artifact.Bytes)),
	}, nil
}

func ndaTemplate() templates.Template {
	return templates.Template{
		ID:           "tpl-nda",
		Name:         "NDA Agreement",
		Placeholders: []string{"full_name", "date_of_contract", "company_name", "signature"},
		Status:       templates.StatusReady,
	}
}

func ndaSuggestion() llm.SuggestionResult {
	return llm.SuggestionResult{
		ValuesByField: map[string]string{
			"full_name":        "Jane Doe",
			"date_of_contract": "2024-01-01",
			"company_name":     "Acme",
			"not_a_field":      "ignored",
		},
		Font: llm.DefaultFont,
	}
}

type fixture struct {
	suggester *fakeSuggester
	renderer  *fakeRenderer
	deliverer *fakeDeliverer
}

func newSession(t *testing.T) (*Session, *fixture) {
	t.Helper()
	f := &fixture{
		suggester: &fakeSuggester{result: ndaSuggestion()},
		renderer:  &fakeRenderer{},
		deliverer: &fakeDeliverer{},
	}
	s, err := NewSession("sess-1", jane, ndaTemplate(), Deps{
		Suggester: f.suggester,
		Renderer:  f.renderer,
		Deliverer: f.deliverer,
	}, nil)
	require.NoError(t, err)
	return s, f
}

func rendered(t *testing.T) (*Session, *fixture) {
	t.Helper()
	s, f := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "Jane Doe signs for Acme on 2024-01-01"))
	require.NoError(t, s.UpdateField("signature", "Jane Doe"))
	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	return s, f
}

func TestNDAScenario(t *testing.T) {
	deliverer := &fakeDeliverer{}
	s, err := NewSession("sess-nda", jane, ndaTemplate(), Deps{
		Suggester: &fakeSuggester{result: ndaSuggestion()},
		Renderer:  render.New(),
		Deliverer: deliverer,
	}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SubmitBrief(ctx, "Jane Doe signs for Acme on 2024-01-01"))

	snap := s.Snapshot()
	assert.Equal(t, StepReviewingValues, snap.Step)
	assert.Equal(t, "Jane Doe", snap.Values["full_name"])
	assert.Len(t, snap.Values, 4)
	assert.Contains(t, snap.Values, "signature")
	assert.NotContains(t, snap.Values, "not_a_field")
	assert.False(t, s.CanConfirm())

	_, err = s.Confirm(ctx)
	var disabled *ConfirmDisabledError
	require.ErrorAs(t, err, &disabled)
	assert.Equal(t, []string{"signature"}, disabled.Missing)
	assert.ErrorIs(t, err, ErrConfirmDisabled)

	require.NoError(t, s.UpdateField("signature", "Jane Doe"))
	assert.True(t, s.CanConfirm())

	art, err := s.Confirm(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, art.Bytes)
	assert.False(t, art.Fallback)
	assert.Equal(t, StepRendered, s.Snapshot().Step)

	got, ok := s.Artifact()
	require.True(t, ok)
	assert.Equal(t, art.Bytes, got.Bytes)
}

func TestSubmitBriefSendsBriefAsSinglePseudoField(t *testing.T) {
	s, f := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "Jane Doe signs for Acme"))

	require.Len(t, f.suggester.inputs, 1)
	in := f.suggester.inputs[0]
	assert.Equal(t, ndaTemplate().Placeholders, in.Fields)
	assert.Equal(t, map[string]string{"userContext": "Jane Doe signs for Acme"}, in.UserData)
	assert.Contains(t, in.Context, "NDA Agreement")
}

func TestSubmitBriefFailureKeepsCollectingBrief(t *testing.T) {
	s, f := newSession(t)
	f.suggester.err = llm.ErrSuggestionUnavailable

	err := s.SubmitBrief(context.Background(), "")
	require.ErrorIs(t, err, llm.ErrSuggestionUnavailable)

	snap := s.Snapshot()
	assert.Equal(t, StepCollectingBrief, snap.Step)
	assert.False(t, snap.Busy)
	assert.Nil(t, snap.Suggestion)
	for _, v := range snap.Values {
		assert.Empty(t, v)
	}

	f.suggester.err = nil
	require.NoError(t, s.SubmitBrief(context.Background(), "retry"))
	assert.Equal(t, StepReviewingValues, s.Snapshot().Step)
}

func TestUpdateFieldsRejectsUnknownNamesAtomically(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "brief"))

	err := s.UpdateFields(map[string]string{"signature": "J", "salary": "1"})
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Empty(t, s.Snapshot().Values["signature"])
}

func TestUpdateFieldOutsideReviewIsInvalid(t *testing.T) {
	s, _ := newSession(t)
	assert.ErrorIs(t, s.UpdateField("signature", "J"), ErrInvalidTransition)
}

func TestConfirmTreatsWhitespaceAsMissing(t *testing.T) {
	s, f := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "brief"))
	require.NoError(t, s.UpdateField("signature", "   "))

	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrConfirmDisabled)
	assert.Equal(t, 0, f.renderer.Calls())
}

func TestConfirmEmptyArtifactStaysReviewing(t *testing.T) {
	s, f := newSession(t)
	f.renderer.empty = true
	require.NoError(t, s.SubmitBrief(context.Background(), "brief"))
	require.NoError(t, s.UpdateField("signature", "Jane Doe"))

	_, err := s.Confirm(context.Background())
	require.ErrorIs(t, err, ErrRenderFailed)
	assert.Equal(t, StepReviewingValues, s.Snapshot().Step)
	assert.False(t, s.IsBusy())
}

func TestBackTransitions(t *testing.T) {
	s, f := rendered(t)

	require.NoError(t, s.Back())
	snap := s.Snapshot()
	assert.Equal(t, StepReviewingValues, snap.Step)
	assert.Nil(t, snap.Artifact)
	assert.Equal(t, "Jane Doe", snap.Values["signature"])
	_, ok := s.Artifact()
	assert.False(t, ok)

	require.NoError(t, s.UpdateField("company_name", "Acme Corp"))
	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.renderer.Calls())
	assert.Equal(t, "Acme Corp", f.renderer.values[1]["company_name"])

	require.NoError(t, s.Back())
	require.NoError(t, s.Back())
	snap = s.Snapshot()
	assert.Equal(t, StepCollectingBrief, snap.Step)
	assert.Equal(t, "Acme Corp", snap.Values["company_name"])

	assert.ErrorIs(t, s.Back(), ErrInvalidTransition)
}

func TestSecondCallWhileBusyIsRejected(t *testing.T) {
	s, f := newSession(t)
	f.suggester.started = make(chan struct{})
	f.suggester.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.SubmitBrief(context.Background(), "first") }()
	<-f.suggester.started

	assert.True(t, s.IsBusy())
	assert.ErrorIs(t, s.SubmitBrief(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, s.UpdateField("signature", "x"), ErrBusy)

	close(f.suggester.release)
	require.NoError(t, <-done)
	assert.False(t, s.IsBusy())
	assert.Len(t, f.suggester.inputs, 1)
}

func TestConcurrentConfirmRendersOnce(t *testing.T) {
	s, f := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "brief"))
	require.NoError(t, s.UpdateField("signature", "Jane Doe"))
	f.renderer.started = make(chan struct{})
	f.renderer.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Confirm(context.Background())
		done <- err
	}()
	<-f.renderer.started

	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(f.renderer.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.renderer.Calls())
}

func TestCloseDiscardsLateSuggestion(t *testing.T) {
	s, f := newSession(t)
	f.suggester.started = make(chan struct{})
	f.suggester.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.SubmitBrief(context.Background(), "brief") }()
	<-f.suggester.started

	s.Close()
	close(f.suggester.release)

	require.ErrorIs(t, <-done, ErrSessionClosed)
	snap := s.Snapshot()
	assert.True(t, snap.Closed)
	assert.Equal(t, StepCollectingBrief, snap.Step)
	assert.Empty(t, snap.Values["full_name"])
}

func TestBackDiscardsLateRender(t *testing.T) {
	s, f := newSession(t)
	require.NoError(t, s.SubmitBrief(context.Background(), "brief"))
	require.NoError(t, s.UpdateField("signature", "Jane Doe"))
	f.renderer.started = make(chan struct{})
	f.renderer.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Confirm(context.Background())
		done <- err
	}()
	<-f.renderer.started

	require.NoError(t, s.Back())
	close(f.renderer.release)

	require.ErrorIs(t, <-done, ErrStale)
	snap := s.Snapshot()
	assert.Equal(t, StepCollectingBrief, snap.Step)
	assert.Nil(t, snap.Artifact)
}

func TestDeliverIsIdempotentPerRender(t *testing.T) {
	s, f := rendered(t)
	ctx := context.Background()

	first, err := s.Deliver(ctx)
	require.NoError(t, err)
	second, err := s.Deliver(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, f.deliverer.deliveries, 1)
	assert.Equal(t, 1, f.deliverer.deliveries[0].Revision)
	assert.Equal(t, "tpl-nda", f.deliverer.deliveries[0].TemplateID)

	art, ok := s.Artifact()
	require.True(t, ok)
	assert.Equal(t, first.Locator(), art.Locator)

	require.NoError(t, s.Back())
	_, err = s.Confirm(ctx)
	require.NoError(t, err)
	third, err := s.Deliver(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 2, third.Revision)
}

func TestDeliverFailureIsRetryable(t *testing.T) {
	s, f := rendered(t)
	f.deliverer.err = errors.New("bucket unreachable")

	_, err := s.Deliver(context.Background())
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, StepRendered, s.Snapshot().Step)

	f.deliverer.err = nil
	rec, err := s.Deliver(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "art-1", rec.ID)
}

func TestDeliverBeforeRenderIsInvalid(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Deliver(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	s, _ := rendered(t)
	s.Close()

	assert.ErrorIs(t, s.Back(), ErrSessionClosed)
	_, err := s.Deliver(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, ok := s.Artifact()
	assert.False(t, ok)
}

func TestTemplateWithoutPlaceholdersIsRefused(t *testing.T) {
	tpl := ndaTemplate()
	tpl.Placeholders = nil
	_, err := NewSession("sess-empty", jane, tpl, Deps{}, nil)
	assert.ErrorIs(t, err, ErrNoPlaceholders)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := rendered(t)
	snap := s.Snapshot()
	snap.Values["signature"] = "tampered"
	snap.Placeholders[0] = "tampered"

	again := s.Snapshot()
	assert.Equal(t, "Jane Doe", again.Values["signature"])
	assert.Equal(t, "full_name", again.Placeholders[0])
	assert.Nil(t, again.Artifact.Bytes)
	assert.Equal(t, 1, again.Revision)
}
