// Package selection tracks which utterances of a transcript the editor has
// selected and splits a selected run out of its speaker segment.
package selection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/shortcuts"
	"videothingy/council-highlights/internal/transcript"
)

// DefaultExtractTimeout bounds a single extractor call.
const DefaultExtractTimeout = 30 * time.Second

// Shortcut action names registered by BindShortcuts.
const (
	ActionExtractSegment = "extract-segment"
	ActionClearSelection = "clear-selection"
)

// Modifiers are the keyboard modifiers held during a click.
type Modifiers struct {
	Shift bool `json:"shift"`
	Ctrl  bool `json:"ctrl"`
}

// Extractor splits utterances [startUtteranceID, endUtteranceID] of a segment
// into a new segment and persists the result.
type Extractor interface {
	ExtractSpeakerSegment(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error
}

// ExtractorFunc adapts a function to an Extractor.
type ExtractorFunc func(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error

// ExtractSpeakerSegment calls f.
func (f ExtractorFunc) ExtractSpeakerSegment(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error {
	return f(ctx, segmentID, startUtteranceID, endUtteranceID)
}

// Outcome is the result of an ExtractSelected call.
type Outcome string

const (
	OutcomeNoOp      Outcome = "noop"
	OutcomeBusy      Outcome = "busy"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
	OutcomeExtracted Outcome = "extracted"
)

// Observer receives engine events, typically for metrics.
type Observer interface {
	SelectionChanged(kind string)
	ExtractionFinished(outcome Outcome, elapsed time.Duration)
}

// Config holds the collaborators of an Engine. Extractor is required.
type Config struct {
	Extractor      Extractor
	Notifier       notify.Sink
	Logger         logrus.FieldLogger
	Observer       Observer
	ExtractTimeout time.Duration

	// AfterExtract runs after a successful extraction, once the selection has
	// been cleared. Hosts use it to reload the restructured transcript.
	AfterExtract func(ctx context.Context, plan Plan)
}

// State is a snapshot of the selection.
type State struct {
	Selected    []string `json:"selected"`
	LastClicked *string  `json:"last_clicked"`
	Processing  bool     `json:"processing"`
}

// Engine holds the selection of one editing session. It is safe for
// concurrent use; the lock is never held while the extractor runs.
type Engine struct {
	mu         sync.Mutex
	index      *transcript.Index
	selected   map[string]struct{}
	anchor     string
	hasAnchor  bool
	processing bool

	extractor    Extractor
	notifier     notify.Sink
	logger       logrus.FieldLogger
	observer     Observer
	timeout      time.Duration
	afterExtract func(ctx context.Context, plan Plan)
}

// New returns an Engine over idx.
func New(idx *transcript.Index, cfg Config) *Engine {
	if idx == nil {
		idx = transcript.NewIndex(nil)
	}
	e := &Engine{
		index:        idx,
		selected:     make(map[string]struct{}),
		extractor:    cfg.Extractor,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
		timeout:      cfg.ExtractTimeout,
		afterExtract: cfg.AfterExtract,
	}
	if e.notifier == nil {
		e.notifier = notify.Discard
	}
	if e.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.logger = l
	}
	if e.timeout <= 0 {
		e.timeout = DefaultExtractTimeout
	}
	return e
}

// Toggle applies a click on utterance id.
//
// Shift with an anchor adds the inclusive chronological range between the
// anchor and id and leaves the anchor alone. Ctrl flips membership of id.
// A plain click replaces the selection with id. Ctrl and plain clicks move
// the anchor to id.
func (e *Engine) Toggle(id string, mods Modifiers) {
	e.mu.Lock()
	var kind string
	switch {
	case mods.Shift && e.hasAnchor:
		e.addRangeLocked(e.anchor, id)
		kind = "range"
	case mods.Ctrl:
		if _, ok := e.selected[id]; ok {
			delete(e.selected, id)
		} else {
			e.selected[id] = struct{}{}
		}
		e.anchor, e.hasAnchor = id, true
		kind = "toggle"
	default:
		e.selected = map[string]struct{}{id: {}}
		e.anchor, e.hasAnchor = id, true
		kind = "single"
	}
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.SelectionChanged(kind)
	}
}

func (e *Engine) addRangeLocked(from, to string) {
	a, okA := e.index.Position(from)
	b, okB := e.index.Position(to)
	if !okA || !okB {
		// No chronological span without both endpoints.
		e.selected[to] = struct{}{}
		return
	}
	if a > b {
		a, b = b, a
	}
	flat := e.index.Utterances()
	for i := a; i <= b; i++ {
		e.selected[flat[i].ID] = struct{}{}
	}
}

// Clear empties the selection and drops the range anchor.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.clearLocked()
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.SelectionChanged("clear")
	}
}

func (e *Engine) clearLocked() {
	e.selected = make(map[string]struct{})
	e.anchor, e.hasAnchor = "", false
}

// SetTranscript swaps in a new transcript snapshot and drops selected ids
// that no longer exist, including the anchor.
func (e *Engine) SetTranscript(idx *transcript.Index) {
	if idx == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = idx
	for id := range e.selected {
		if !idx.Has(id) {
			delete(e.selected, id)
		}
	}
	if e.hasAnchor && !idx.Has(e.anchor) {
		e.anchor, e.hasAnchor = "", false
	}
}

// Index returns the current transcript snapshot.
func (e *Engine) Index() *transcript.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Selected returns the selected ids in chronological order. Ids missing from
// the transcript sort last, by id.
func (e *Engine) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedLocked()
}

func (e *Engine) selectedLocked() []string {
	ids := make([]string, 0, len(e.selected))
	for id := range e.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, oki := e.index.Position(ids[i])
		pj, okj := e.index.Position(ids[j])
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// HasSelection reports whether anything is selected.
func (e *Engine) HasSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.selected) > 0
}

// IsSelected reports whether id is selected.
func (e *Engine) IsSelected(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.selected[id]
	return ok
}

// LastClicked returns the range anchor, if any.
func (e *Engine) LastClicked() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anchor, e.hasAnchor
}

// IsProcessing reports whether an extraction is in flight.
func (e *Engine) IsProcessing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

// State returns a snapshot of the selection.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{Selected: e.selectedLocked(), Processing: e.processing}
	if e.hasAnchor {
		anchor := e.anchor
		st.LastClicked = &anchor
	}
	return st
}

// ExtractSelected moves the selected run of utterances into a new segment.
// Calls made while another extraction is in flight return OutcomeBusy
// without doing anything. Failures are reported through the notifier; the
// selection is only cleared on success.
func (e *Engine) ExtractSelected(ctx context.Context) Outcome {
	e.mu.Lock()
	if e.processing {
		e.mu.Unlock()
		return OutcomeBusy
	}
	if len(e.selected) == 0 {
		e.mu.Unlock()
		return OutcomeNoOp
	}
	e.processing = true
	ids := e.selectedLocked()
	idx := e.index
	e.mu.Unlock()

	start := time.Now()
	outcome := e.extract(ctx, idx, ids)

	e.mu.Lock()
	e.processing = false
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.ExtractionFinished(outcome, time.Since(start))
	}
	return outcome
}

func (e *Engine) extract(ctx context.Context, idx *transcript.Index, ids []string) Outcome {
	plan, err := PlanExtraction(idx, ids)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			e.notifier.Notify(notify.Notification{
				Title:       "Cannot extract segment",
				Description: verr.Reason,
				Severity:    notify.SeverityError,
			})
			return OutcomeInvalid
		}
		e.logger.WithError(err).Error("Could not resolve selection for extraction")
		e.notifyFailure()
		return OutcomeFailed
	}

	log := e.logger.WithFields(logrus.Fields{
		"segment_id":         plan.SegmentID,
		"start_utterance_id": plan.StartUtteranceID,
		"end_utterance_id":   plan.EndUtteranceID,
	})

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if pending, err := e.callExtractor(callCtx, plan); err != nil {
		log.WithError(err).Error("Speaker segment extraction failed")
		e.resyncAfter(ctx, pending, plan, log)
		e.notifyFailure()
		return OutcomeFailed
	}

	e.mu.Lock()
	e.clearLocked()
	e.mu.Unlock()

	if e.afterExtract != nil {
		e.afterExtract(ctx, plan)
	}
	log.WithField("extracted", plan.ExtractionCount()).Info("Extracted speaker segment")
	e.notifier.Notify(notify.Notification{
		Title:       "Segment extracted",
		Description: fmt.Sprintf("%d utterances moved into a new speaker segment", plan.ExtractionCount()),
		Severity:    notify.SeveritySuccess,
	})
	return OutcomeExtracted
}

// callExtractor runs the extractor and gives up when ctx ends, even if the
// extractor ignores ctx. The returned channel yields the extractor's result
// once it has actually returned.
func (e *Engine) callExtractor(ctx context.Context, plan Plan) (<-chan error, error) {
	if e.extractor == nil {
		return nil, fmt.Errorf("no extractor configured: %w", apperrors.ErrInvalidState)
	}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("extractor panicked: %v", r)
			}
		}()
		done <- e.extractor.ExtractSpeakerSegment(ctx, plan.SegmentID, plan.StartUtteranceID, plan.EndUtteranceID)
	}()

	select {
	case err := <-done:
		return nil, err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return done, fmt.Errorf("extract segment %s after %s: %w", plan.SegmentID, e.timeout, apperrors.ErrTimeout)
		}
		return done, ctx.Err()
	}
}

// resyncAfter runs afterExtract once an abandoned extractor call returns, so a
// split the store completed or left part-way is picked up by the session.
func (e *Engine) resyncAfter(ctx context.Context, done <-chan error, plan Plan, log logrus.FieldLogger) {
	if e.afterExtract == nil || done == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		err := <-done
		log.WithError(err).Warn("Abandoned extraction returned, reloading transcript")
		e.afterExtract(ctx, plan)
	}()
}

func (e *Engine) notifyFailure() {
	e.notifier.Notify(notify.Notification{
		Title:       "Extraction failed",
		Description: "Could not extract the selected utterances. Please try again.",
		Severity:    notify.SeverityError,
	})
}

// BindShortcuts registers the extraction and clear actions. Extraction is
// enabled only while something is selected.
func (e *Engine) BindShortcuts(reg *shortcuts.Registrar) {
	reg.Register(shortcuts.Action{
		Name:    ActionExtractSegment,
		Keys:    []string{"mod+shift+e"},
		Enabled: e.HasSelection,
		Run:     func(ctx context.Context) string { return string(e.ExtractSelected(ctx)) },
	})
	reg.Register(shortcuts.Action{
		Name: ActionClearSelection,
		Keys: []string{"escape"},
		Run: func(context.Context) string {
			e.Clear()
			return "cleared"
		},
	})
}
