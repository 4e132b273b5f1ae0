package session

import "sync"

// Command kinds queued for the browser-side player.
const (
	CommandSeek        = "seek"
	CommandSeekAndPlay = "seek_and_play"
	CommandPause       = "pause"
	CommandPlay        = "play"
)

// Command is one instruction for the browser-side video element.
type Command struct {
	Kind string  `json:"kind"`
	Time float64 `json:"time,omitempty"`
}

// RemotePlayer stands in for a video element that lives in the browser. It
// answers queries from the last reported position and queues every command
// until the next response drains them.
type RemotePlayer struct {
	mu       sync.Mutex
	now      float64
	playing  bool
	commands []Command
}

// NewRemotePlayer returns a paused player at time 0.
func NewRemotePlayer() *RemotePlayer {
	return &RemotePlayer{}
}

// Report records the position and play state the browser last saw.
func (p *RemotePlayer) Report(currentTime float64, playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = currentTime
	p.playing = playing
}

func (p *RemotePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *RemotePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *RemotePlayer) SetPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = playing
	kind := CommandPause
	if playing {
		kind = CommandPlay
	}
	p.commands = append(p.commands, Command{Kind: kind})
}

func (p *RemotePlayer) SeekTo(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = t
	p.commands = append(p.commands, Command{Kind: CommandSeek, Time: t})
}

func (p *RemotePlayer) SeekToAndPlay(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = t
	p.playing = true
	p.commands = append(p.commands, Command{Kind: CommandSeekAndPlay, Time: t})
}

// DrainCommands returns the queued commands in issue order and empties the
// queue. The result is never nil.
func (p *RemotePlayer) DrainCommands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.commands
	p.commands = nil
	if out == nil {
		out = []Command{}
	}
	return out
}
