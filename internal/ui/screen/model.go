// Package screen is the root terminal model: it shows the player bar and
// the queue, and turns key presses into transport requests.
package screen

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavestream/internal/keymap"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/ui/queuepanel"
)

// Player is the transport surface the screen drives.
type Player interface {
	Snapshot() playback.Snapshot
	PlayPause(ctx context.Context)
	Stop()
	Next(ctx context.Context)
	Previous(ctx context.Context)
	SeekBy(delta time.Duration)
	SetVolume(v float64)
	ToggleShuffle()
	ToggleRepeat()
	ToggleAutoplayOnEnd()
	TogglePlayerMode()
	PlayAt(ctx context.Context, index int)
	RemoveFromQueue(ctx context.Context, index int)
	MoveInQueue(from, to int)
	ClearQueue()
	UserGesture(ctx context.Context)
}

// Options tune key handling.
type Options struct {
	SeekStep   time.Duration
	VolumeStep float64
}

// Model is the root application model.
type Model struct {
	player Player
	sub    *playback.Subscription
	keys   *keymap.Resolver
	opts   Options
	ctx    context.Context

	snapshot playback.Snapshot
	queue    queuepanel.Model
	status   string
	help     bool
	width    int
	height   int
}

// New creates the root model. sub may be nil, in which case the screen only
// refreshes after its own actions.
func New(p Player, sub *playback.Subscription, opts Options) Model {
	if opts.SeekStep <= 0 {
		opts.SeekStep = 10 * time.Second
	}
	if opts.VolumeStep <= 0 {
		opts.VolumeStep = 0.05
	}
	m := Model{
		player: p,
		sub:    sub,
		keys:   keymap.NewResolver(keymap.Bindings),
		opts:   opts,
		ctx:    context.Background(),
		queue:  queuepanel.New(),
	}
	m.queue.SetFocused(true)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.watchEvents()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case playerEventMsg:
		m.refresh()
		return m, m.watchEvents()
	case playerErrorMsg:
		m.refresh()
		m.status = formatError(msg.event, m.snapshot)
		return m, m.watchEvents()
	case playerClosedMsg:
		return m, tea.Quit
	case actionDoneMsg:
		m.refresh()
		return m, nil
	case queuepanel.JumpToTrackMsg:
		return m, m.run(func(ctx context.Context) { m.player.PlayAt(ctx, msg.Index) })
	case queuepanel.RemoveTrackMsg:
		return m, m.run(func(ctx context.Context) { m.player.RemoveFromQueue(ctx, msg.Index) })
	case queuepanel.MoveTrackMsg:
		m.player.MoveInQueue(msg.From, msg.To)
		m.refresh()
		return m, nil
	case queuepanel.ClearQueueMsg:
		m.player.ClearQueue()
		m.refresh()
		return m, nil
	}
	return m, nil
}

// handleKey resolves a key press. Every press counts as a user gesture, so
// a play the platform rejected earlier is retried before the key's own
// command runs.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	next, cmd := m.resolveKey(msg)
	return next, m.afterGesture(cmd)
}

func (m Model) resolveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.help {
		if a := m.keys.Resolve(key); a == keymap.ActionHelp || a == keymap.ActionQuit || key == "esc" {
			m.help = false
		}
		return m, nil
	}

	if queuepanel.Handles(key) {
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	}

	m.status = ""
	switch m.keys.Resolve(key) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.help = true
		return m, nil
	case keymap.ActionPlayPause:
		return m, m.run(m.player.PlayPause)
	case keymap.ActionNextTrack:
		return m, m.run(m.player.Next)
	case keymap.ActionPrevTrack:
		return m, m.run(m.player.Previous)
	case keymap.ActionStop:
		m.player.Stop()
	case keymap.ActionSeekForward:
		m.player.SeekBy(m.opts.SeekStep)
	case keymap.ActionSeekBack:
		m.player.SeekBy(-m.opts.SeekStep)
	case keymap.ActionVolumeUp:
		m.player.SetVolume(m.snapshot.Preferences.Volume + m.opts.VolumeStep)
	case keymap.ActionVolumeDown:
		m.player.SetVolume(m.snapshot.Preferences.Volume - m.opts.VolumeStep)
	case keymap.ActionToggleShuffle:
		m.player.ToggleShuffle()
	case keymap.ActionToggleRepeat:
		m.player.ToggleRepeat()
	case keymap.ActionToggleAutoplay:
		m.player.ToggleAutoplayOnEnd()
	case keymap.ActionTogglePlayerMode:
		m.player.TogglePlayerMode()
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

// refresh pulls a fresh snapshot into the model and its panels.
func (m *Model) refresh() {
	m.snapshot = m.player.Snapshot()
	m.resize()
	m.queue.SetQueue(m.snapshot)
}
