package playback

import (
	"math"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/models"
)

// Defaults for Config.
const (
	DefaultSeekTolerance   = 0.25
	DefaultMaxStaleUpdates = 20
)

// Player is the video element being driven.
type Player interface {
	CurrentTime() float64
	IsPlaying() bool
	SetPlaying(playing bool)
	SeekTo(t float64)
	SeekToAndPlay(t float64)
}

// Observer receives navigation events, typically for metrics.
type Observer interface {
	Navigated(kind string)
}

// Config tunes a Controller.
type Config struct {
	// SeekTolerance is how close (seconds) a time update must be to a seek
	// target to count as the seek having landed.
	SeekTolerance float64
	// MaxStaleUpdates ends a seek after this many non-matching time updates.
	MaxStaleUpdates int
	Observer        Observer
}

// Phase of the seek state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseSeeking Phase = "seeking"
	PhasePlaying Phase = "playing"
)

// State is a snapshot of the controller.
type State struct {
	HighlightID  string `json:"highlight_id"`
	View         View   `json:"view"`
	CurrentIndex int    `json:"current_index"`
	Current      *Clip  `json:"current,omitempty"`
	PreviewMode  bool   `json:"preview_mode"`
	Phase        Phase  `json:"phase"`
}

// Controller tracks which clip of a highlight is playing and moves the player
// between clips. Time updates that arrive while a programmatic seek is in
// flight are ignored until the player reports a time near the seek target,
// acknowledges the seek, or MaxStaleUpdates updates have been dropped.
type Controller struct {
	mu sync.Mutex

	player    Player
	observer  Observer
	tolerance float64
	maxStale  int

	index       *transcript.Index
	highlight   *models.Highlight
	highlightID string
	key         uint64
	view        View
	current     int
	preview     bool
	// entering is set on a highlight identity change until the first clip
	// has been sought to.
	entering bool

	phase      Phase
	seekTarget float64
	stale      int
}

// NewController returns a Controller driving player.
func NewController(player Player, cfg Config) *Controller {
	c := &Controller{
		player:    player,
		observer:  cfg.Observer,
		tolerance: cfg.SeekTolerance,
		maxStale:  cfg.MaxStaleUpdates,
		index:     transcript.NewIndex(nil),
		view:      View{Clips: []Clip{}},
		phase:     PhaseIdle,
	}
	if c.tolerance <= 0 {
		c.tolerance = DefaultSeekTolerance
	}
	if c.maxStale <= 0 {
		c.maxStale = DefaultMaxStaleUpdates
	}
	return c
}

// contentKey hashes everything the derived view depends on.
func contentKey(h *models.Highlight, idx *transcript.Index) uint64 {
	d := xxhash.New()
	if h != nil {
		_, _ = d.WriteString(h.ID)
		for _, hu := range h.HighlightedUtterances {
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(hu.UtteranceID)
		}
	}
	_, _ = d.WriteString("\x01")
	_, _ = d.WriteString(strconv.FormatUint(idx.Version(), 16))
	return d.Sum64()
}

// Load sets both the transcript and the highlight.
func (c *Controller) Load(idx *transcript.Index, h *models.Highlight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx != nil {
		c.index = idx
	}
	c.setHighlightLocked(h)
}

// SetTranscript swaps the transcript snapshot and re-derives if it changed.
func (c *Controller) SetTranscript(idx *transcript.Index) {
	if idx == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = idx
	c.setHighlightLocked(c.highlight)
}

// SetHighlight points the controller at h. The view is re-derived when the
// highlight's content changes. A change of highlight identity also resets to
// the first clip and seeks there, once the highlight has any clips.
func (c *Controller) SetHighlight(h *models.Highlight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setHighlightLocked(h)
}

func (c *Controller) setHighlightLocked(h *models.Highlight) {
	var id string
	if h != nil {
		id = h.ID
	}
	if id != c.highlightID {
		c.highlightID = id
		c.entering = h != nil
	}
	c.highlight = h

	key := contentKey(h, c.index)
	if key != c.key {
		c.key = key
		c.view = Derive(h, c.index)
	}

	n := len(c.view.Clips)
	switch {
	case c.entering && n > 0:
		c.entering = false
		c.current = 0
		c.seekLocked(c.view.Clips[0].StartTimestamp, false)
	case n == 0:
		c.current = 0
	case c.current >= n:
		c.current = n - 1
	}
}

// OnTimeUpdate feeds the player's current time into the controller.
func (c *Controller) OnTimeUpdate(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseSeeking {
		if math.Abs(t-c.seekTarget) > c.tolerance {
			c.stale++
			if c.stale < c.maxStale {
				return
			}
		}
		c.endSeekLocked()
	}

	n := len(c.view.Clips)
	if n == 0 {
		return
	}
	for i, clip := range c.view.Clips {
		if clip.Contains(t) {
			if i != c.current {
				c.current = i
			}
			break
		}
	}

	if c.preview && c.player.IsPlaying() && t >= c.view.Clips[c.current].EndTimestamp {
		next := (c.current + 1) % n
		c.current = next
		c.seekLocked(c.view.Clips[next].StartTimestamp, false)
		c.observe("auto_advance")
	}
}

// OnSeeked acknowledges that the player finished a seek.
func (c *Controller) OnSeeked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSeeking {
		c.endSeekLocked()
	}
}

func (c *Controller) endSeekLocked() {
	c.stale = 0
	if c.player.IsPlaying() {
		c.phase = PhasePlaying
	} else {
		c.phase = PhaseIdle
	}
}

func (c *Controller) seekLocked(t float64, play bool) {
	c.phase = PhaseSeeking
	c.seekTarget = t
	c.stale = 0
	if play {
		c.player.SeekToAndPlay(t)
	} else {
		c.player.SeekTo(t)
	}
}

// Previous moves to the previous clip, wrapping to the last one in preview
// mode. It reports whether the index changed.
func (c *Controller) Previous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.view.Clips)
	if n == 0 {
		return false
	}
	target := c.current - 1
	if target < 0 {
		if !c.preview {
			return false
		}
		target = n - 1
	}
	c.navigateLocked(target)
	c.observe("previous")
	return true
}

// Next moves to the next clip, wrapping to the first one in preview mode.
// It reports whether the index changed.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.view.Clips)
	if n == 0 {
		return false
	}
	target := c.current + 1
	if target >= n {
		if !c.preview {
			return false
		}
		target = 0
	}
	c.navigateLocked(target)
	c.observe("next")
	return true
}

// navigateLocked pauses, moves the index and then seeks and plays.
func (c *Controller) navigateLocked(target int) {
	c.player.SetPlaying(false)
	c.current = target
	c.seekLocked(c.view.Clips[target].StartTimestamp, true)
}

// GoTo jumps to clip i without changing the play state. Out-of-range indices
// are ignored.
func (c *Controller) GoTo(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.view.Clips) {
		return false
	}
	c.current = i
	c.seekLocked(c.view.Clips[i].StartTimestamp, false)
	c.observe("jump")
	return true
}

// TogglePreview flips preview mode. Turning it on restarts at the first clip.
func (c *Controller) TogglePreview() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = !c.preview
	if c.preview && len(c.view.Clips) > 0 {
		c.current = 0
		c.seekLocked(c.view.Clips[0].StartTimestamp, false)
	}
	c.observe("preview")
	return c.preview
}

// PreviewMode reports whether preview mode is on.
func (c *Controller) PreviewMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// CurrentIndex returns the index of the current clip.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Phase returns the seek state machine phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// View returns the derived view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		HighlightID:  c.highlightID,
		View:         c.view,
		CurrentIndex: c.current,
		PreviewMode:  c.preview,
		Phase:        c.phase,
	}
	if c.current < len(c.view.Clips) {
		clip := c.view.Clips[c.current]
		st.Current = &clip
	}
	return st
}

func (c *Controller) observe(kind string) {
	if c.observer != nil {
		c.observer.Navigated(kind)
	}
}
