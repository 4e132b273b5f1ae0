package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/shortcuts"
	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/internal/transcript/transcripttest"
	"videothingy/council-highlights/models"
)

// MockExtractor implements Extractor for testing.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractSpeakerSegment(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error {
	args := m.Called(ctx, segmentID, startUtteranceID, endUtteranceID)
	return args.Error(0)
}

func newEngine(t *testing.T, tr *models.Transcript, ex Extractor) (*Engine, *notify.Queue) {
	t.Helper()
	q := notify.NewQueue(10)
	e := New(transcript.NewIndex(tr), Config{Extractor: ex, Notifier: q})
	return e, q
}

// fourUtterances is segment S with u0(0-2) u1(2-4) u2(4-6) u3(6-8).
func fourUtterances() *models.Transcript {
	return &models.Transcript{Segments: []models.SpeakerSegment{
		transcripttest.Segment("S", "", 0, 4, 2),
	}}
}

func TestToggle_PlainClickCollapsesToSingleton(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u0", Modifiers{})
	e.Toggle("S2-u1", Modifiers{Shift: true})
	require.Greater(t, len(e.Selected()), 1)

	e.Toggle("S3-u2", Modifiers{})
	assert.Equal(t, []string{"S3-u2"}, e.Selected())
	anchor, ok := e.LastClicked()
	assert.True(t, ok)
	assert.Equal(t, "S3-u2", anchor)
}

func TestToggle_RangeIsOrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"S1-u1", "S3-u0"},
		{"S2-u2", "S2-u0"},
		{"S1-u0", "S1-u0"},
		{"S1-u3", "S3-u4"},
	}
	for _, p := range pairs {
		t.Run(p[0]+"_"+p[1], func(t *testing.T) {
			forward, _ := newEngine(t, transcripttest.Council(), nil)
			forward.Toggle(p[0], Modifiers{})
			forward.Toggle(p[1], Modifiers{Shift: true})

			backward, _ := newEngine(t, transcripttest.Council(), nil)
			backward.Toggle(p[1], Modifiers{})
			backward.Toggle(p[0], Modifiers{Shift: true})

			assert.Equal(t, forward.Selected(), backward.Selected())
		})
	}
}

func TestToggle_RangeSpansChronologically(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u2", Modifiers{})
	e.Toggle("S2-u1", Modifiers{Shift: true})

	assert.Equal(t, []string{"S1-u2", "S1-u3", "S2-u0", "S2-u1"}, e.Selected())
	anchor, _ := e.LastClicked()
	assert.Equal(t, "S1-u2", anchor, "range selection keeps the anchor")
}

func TestToggle_RangeAddsToExistingSelection(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S3-u4", Modifiers{})
	e.Toggle("S1-u0", Modifiers{Ctrl: true})
	e.Toggle("S1-u1", Modifiers{Shift: true})

	assert.Equal(t, []string{"S1-u0", "S1-u1", "S3-u4"}, e.Selected())
}

func TestToggle_ShiftWithoutAnchorActsAsPlainClick(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S2-u1", Modifiers{Shift: true})
	assert.Equal(t, []string{"S2-u1"}, e.Selected())
	anchor, ok := e.LastClicked()
	assert.True(t, ok)
	assert.Equal(t, "S2-u1", anchor)
}

func TestToggle_CtrlTwiceRestoresSelection(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u0", Modifiers{})
	e.Toggle("S1-u2", Modifiers{Ctrl: true})
	before := e.Selected()

	e.Toggle("S3-u1", Modifiers{Ctrl: true})
	e.Toggle("S3-u1", Modifiers{Ctrl: true})
	assert.Equal(t, before, e.Selected())

	e.Toggle("S1-u2", Modifiers{Ctrl: true})
	assert.Equal(t, []string{"S1-u0"}, e.Selected())
}

func TestToggle_UnknownIDIsAdded(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u0", Modifiers{})
	e.Toggle("ghost", Modifiers{Shift: true})
	assert.Equal(t, []string{"S1-u0", "ghost"}, e.Selected())
}

func TestClear_ResetsAnchor(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u0", Modifiers{})
	e.Clear()

	assert.Empty(t, e.Selected())
	_, ok := e.LastClicked()
	assert.False(t, ok)

	// Without an anchor the next shift-click is a plain click.
	e.Toggle("S1-u3", Modifiers{Shift: true})
	assert.Equal(t, []string{"S1-u3"}, e.Selected())
}

func TestSetTranscript_PrunesStaleIDs(t *testing.T) {
	e, _ := newEngine(t, transcripttest.Council(), nil)
	e.Toggle("S1-u1", Modifiers{})
	e.Toggle("S1-u2", Modifiers{Ctrl: true})

	changed := transcripttest.Council()
	changed.Segments[0].Utterances = changed.Segments[0].Utterances[:2] // drops u2, u3
	e.SetTranscript(transcript.NewIndex(changed))

	assert.Equal(t, []string{"S1-u1"}, e.Selected())
	_, ok := e.LastClicked()
	assert.False(t, ok, "anchor S1-u2 was removed")
}

func TestExtract_MiddleOfSegmentSucceeds(t *testing.T) {
	ex := new(MockExtractor)
	ex.On("ExtractSpeakerSegment", mock.Anything, "S", "S-u1", "S-u2").Return(nil).Once()

	var after []Plan
	q := notify.NewQueue(10)
	e := New(transcript.NewIndex(fourUtterances()), Config{
		Extractor:    ex,
		Notifier:     q,
		AfterExtract: func(_ context.Context, p Plan) { after = append(after, p) },
	})
	e.Toggle("S-u1", Modifiers{})
	e.Toggle("S-u2", Modifiers{Shift: true})
	require.Equal(t, []string{"S-u1", "S-u2"}, e.Selected())

	outcome := e.ExtractSelected(context.Background())

	assert.Equal(t, OutcomeExtracted, outcome)
	ex.AssertExpectations(t)
	assert.Empty(t, e.Selected())
	assert.False(t, e.IsProcessing())
	require.Len(t, after, 1)
	assert.Equal(t, 2, after[0].ExtractionCount())

	notes := q.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.SeveritySuccess, notes[0].Severity)
}

func TestExtract_StartOfSegmentFailsValidation(t *testing.T) {
	ex := new(MockExtractor)
	e, q := newEngine(t, fourUtterances(), ex)
	e.Toggle("S-u0", Modifiers{})

	outcome := e.ExtractSelected(context.Background())

	assert.Equal(t, OutcomeInvalid, outcome)
	ex.AssertNotCalled(t, "ExtractSpeakerSegment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"S-u0"}, e.Selected())

	notes := q.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, ErrSegmentEdge.Reason, notes[0].Description)
	assert.Equal(t, notify.SeverityError, notes[0].Severity)
}

func TestExtract_BoundaryInvariant(t *testing.T) {
	// Segment of n=5 utterances; every (s, e) pair is checked.
	const n = 5
	tr := &models.Transcript{Segments: []models.SpeakerSegment{
		transcripttest.Segment("S", "", 0, n, 1),
	}}
	for s := 0; s < n; s++ {
		for end := s; end < n; end++ {
			ex := new(MockExtractor)
			ex.On("ExtractSpeakerSegment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			e, _ := newEngine(t, tr, ex)
			e.Toggle(tr.Segments[0].Utterances[s].ID, Modifiers{})
			e.Toggle(tr.Segments[0].Utterances[end].ID, Modifiers{Shift: true})
			before := e.Selected()

			outcome := e.ExtractSelected(context.Background())

			valid := s > 0 && end < n-1 && end-s+1 < n
			if valid {
				assert.Equal(t, OutcomeExtracted, outcome, "s=%d e=%d", s, end)
			} else {
				assert.Equal(t, OutcomeInvalid, outcome, "s=%d e=%d", s, end)
				assert.Equal(t, before, e.Selected(), "s=%d e=%d", s, end)
				ex.AssertNotCalled(t, "ExtractSpeakerSegment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		}
	}
}

func TestExtract_MultipleSegmentsFails(t *testing.T) {
	ex := new(MockExtractor)
	e, q := newEngine(t, transcripttest.Council(), ex)
	e.Toggle("S1-u2", Modifiers{})
	e.Toggle("S2-u1", Modifiers{Ctrl: true})

	assert.Equal(t, OutcomeInvalid, e.ExtractSelected(context.Background()))
	notes := q.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, ErrMultipleSegments.Reason, notes[0].Description)
	assert.Len(t, e.Selected(), 2)
}

func TestExtract_GapInSelectionIsIncluded(t *testing.T) {
	ex := new(MockExtractor)
	ex.On("ExtractSpeakerSegment", mock.Anything, "S3", "S3-u1", "S3-u3").Return(nil).Once()
	e, _ := newEngine(t, transcripttest.Council(), ex)
	e.Toggle("S3-u1", Modifiers{})
	e.Toggle("S3-u3", Modifiers{Ctrl: true})

	assert.Equal(t, OutcomeExtracted, e.ExtractSelected(context.Background()))
	ex.AssertExpectations(t)
}

func TestExtract_EmptySelectionIsNoOp(t *testing.T) {
	ex := new(MockExtractor)
	e, q := newEngine(t, fourUtterances(), ex)
	assert.Equal(t, OutcomeNoOp, e.ExtractSelected(context.Background()))
	assert.Equal(t, 0, q.Len())
}

func TestExtract_UnknownUtteranceFailsGenerically(t *testing.T) {
	ex := new(MockExtractor)
	e, q := newEngine(t, fourUtterances(), ex)
	e.Toggle("ghost", Modifiers{})

	assert.Equal(t, OutcomeFailed, e.ExtractSelected(context.Background()))
	notes := q.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Extraction failed", notes[0].Title)
	assert.Equal(t, []string{"ghost"}, e.Selected())
}

func TestExtract_CollaboratorErrorKeepsSelection(t *testing.T) {
	ex := new(MockExtractor)
	ex.On("ExtractSpeakerSegment", mock.Anything, "S", "S-u1", "S-u1").Return(errors.New("db down")).Once()
	e, q := newEngine(t, fourUtterances(), ex)
	e.Toggle("S-u1", Modifiers{})

	assert.Equal(t, OutcomeFailed, e.ExtractSelected(context.Background()))
	assert.Equal(t, []string{"S-u1"}, e.Selected())
	assert.False(t, e.IsProcessing())
	notes := q.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.SeverityError, notes[0].Severity)
}

func TestExtract_TimeoutReleasesProcessing(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	hung := ExtractorFunc(func(context.Context, string, string, string) error {
		<-release
		return nil
	})
	q := notify.NewQueue(10)
	e := New(transcript.NewIndex(fourUtterances()), Config{
		Extractor:      hung,
		Notifier:       q,
		ExtractTimeout: 20 * time.Millisecond,
	})
	e.Toggle("S-u2", Modifiers{})

	assert.Equal(t, OutcomeFailed, e.ExtractSelected(context.Background()))
	assert.False(t, e.IsProcessing())
	assert.Equal(t, []string{"S-u2"}, e.Selected())
}

func TestExtract_TimeoutResyncsWhenExtractorReturns(t *testing.T) {
	release := make(chan struct{})
	hung := ExtractorFunc(func(context.Context, string, string, string) error {
		<-release
		return nil
	})
	resynced := make(chan Plan, 1)
	e := New(transcript.NewIndex(fourUtterances()), Config{
		Extractor:      hung,
		Notifier:       notify.Discard,
		ExtractTimeout: 20 * time.Millisecond,
		AfterExtract:   func(_ context.Context, plan Plan) { resynced <- plan },
	})
	e.Toggle("S-u2", Modifiers{})

	require.Equal(t, OutcomeFailed, e.ExtractSelected(context.Background()))
	select {
	case <-resynced:
		t.Fatal("resync must wait for the abandoned extractor")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case plan := <-resynced:
		assert.Equal(t, "S", plan.SegmentID)
		assert.Equal(t, "S-u2", plan.StartUtteranceID)
	case <-time.After(time.Second):
		t.Fatal("transcript was not resynced after the extractor returned")
	}
}

func TestExtract_CollaboratorErrorDoesNotResync(t *testing.T) {
	called := false
	e := New(transcript.NewIndex(fourUtterances()), Config{
		Extractor: ExtractorFunc(func(context.Context, string, string, string) error {
			return apperrors.ErrConflict
		}),
		Notifier:     notify.Discard,
		AfterExtract: func(context.Context, Plan) { called = true },
	})
	e.Toggle("S-u1", Modifiers{})

	assert.Equal(t, OutcomeFailed, e.ExtractSelected(context.Background()))
	assert.False(t, called)
}

func TestExtract_ReentrantCallIsBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := ExtractorFunc(func(context.Context, string, string, string) error {
		close(entered)
		<-release
		return nil
	})
	e, _ := newEngine(t, fourUtterances(), slow)
	e.Toggle("S-u1", Modifiers{})

	var wg sync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = e.ExtractSelected(context.Background())
	}()

	<-entered
	assert.True(t, e.IsProcessing())
	assert.Equal(t, OutcomeBusy, e.ExtractSelected(context.Background()))
	// Unrelated updates still go through while the extractor runs.
	e.Toggle("S-u2", Modifiers{Ctrl: true})

	close(release)
	wg.Wait()
	assert.Equal(t, OutcomeExtracted, first)
	assert.False(t, e.IsProcessing())
}

func TestPlanExtraction_Errors(t *testing.T) {
	idx := transcript.NewIndex(transcripttest.Council())

	_, err := PlanExtraction(idx, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.True(t, apperrors.IsValidation(err))

	_, err = PlanExtraction(idx, []string{"S2-u0", "S2-u1", "S2-u2"})
	assert.ErrorIs(t, err, ErrEntireSegment)

	_, err = PlanExtraction(idx, []string{"S2-u2"})
	assert.ErrorIs(t, err, ErrSegmentEdge)

	_, err = PlanExtraction(idx, []string{"S2-u1", "nope"})
	assert.True(t, apperrors.IsNotFound(err))

	plan, err := PlanExtraction(idx, []string{"S3-u3", "S3-u1"})
	require.NoError(t, err)
	assert.Equal(t, Plan{
		SegmentID:         "S3",
		StartUtteranceID:  "S3-u1",
		EndUtteranceID:    "S3-u3",
		SegmentStartIndex: 1,
		SegmentEndIndex:   3,
		TotalUtterances:   5,
	}, plan)
}

func TestBindShortcuts_ExtractGatedOnSelection(t *testing.T) {
	ex := new(MockExtractor)
	ex.On("ExtractSpeakerSegment", mock.Anything, "S", "S-u1", "S-u2").Return(nil).Once()
	e, _ := newEngine(t, fourUtterances(), ex)
	reg := shortcuts.NewRegistrar()
	e.BindShortcuts(reg)

	ctx := context.Background()
	_, err := reg.Trigger(ctx, ActionExtractSegment)
	assert.ErrorIs(t, err, shortcuts.ErrDisabled)

	e.Toggle("S-u1", Modifiers{})
	e.Toggle("S-u2", Modifiers{Shift: true})
	result, err := reg.Trigger(ctx, ActionExtractSegment)
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeExtracted), result)
	ex.AssertExpectations(t)
	assert.Empty(t, e.Selected())

	e.Toggle("S-u0", Modifiers{})
	result, err = reg.Trigger(ctx, ActionExtractSegment)
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeInvalid), result, "segment edge is rejected")

	_, err = reg.Trigger(ctx, ActionClearSelection)
	require.NoError(t, err)
	assert.False(t, e.HasSelection())
}

type recordingObserver struct {
	kinds    []string
	outcomes []Outcome
}

func (r *recordingObserver) SelectionChanged(kind string) { r.kinds = append(r.kinds, kind) }
func (r *recordingObserver) ExtractionFinished(o Outcome, _ time.Duration) {
	r.outcomes = append(r.outcomes, o)
}

func TestObserver_ReceivesEvents(t *testing.T) {
	obs := &recordingObserver{}
	e := New(transcript.NewIndex(fourUtterances()), Config{
		Extractor: ExtractorFunc(func(context.Context, string, string, string) error { return nil }),
		Observer:  obs,
	})
	e.Toggle("S-u1", Modifiers{})
	e.Toggle("S-u2", Modifiers{Shift: true})
	e.Toggle("S-u2", Modifiers{Ctrl: true})
	e.Clear()
	e.Toggle("S-u1", Modifiers{})
	e.ExtractSelected(context.Background())

	assert.Equal(t, []string{"single", "range", "toggle", "clear", "single"}, obs.kinds)
	assert.Equal(t, []Outcome{OutcomeExtracted}, obs.outcomes)
}
