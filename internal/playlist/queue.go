package playlist

import (
	"math/rand/v2"

	"github.com/samber/lo"
)

// Shuffler permutes n elements through swap. rand.Shuffle satisfies it.
type Shuffler func(n int, swap func(i, j int))

// Queue is the ordered set of tracks scheduled for playback. It keeps the
// pre-shuffle order so shuffling can be undone. Queue does no I/O and is not
// safe for concurrent use; the transport controller serializes access.
type Queue struct {
	items        *Playlist
	original     []Track
	context      *Context
	pool         []Track
	currentIndex int // -1 if empty
	shuffled     bool
	shuffle      Shuffler
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:        NewPlaylist(),
		currentIndex: -1,
		shuffle:      rand.Shuffle,
	}
}

// SetShuffler replaces the permutation source. Tests use it for
// deterministic orders.
func (q *Queue) SetShuffler(s Shuffler) {
	if s == nil {
		s = rand.Shuffle
	}
	q.shuffle = s
}

// Initialize replaces the queue content. startIndex is clamped into range.
func (q *Queue) Initialize(tracks []Track, startIndex int, ctx *Context) {
	q.items.Replace(tracks)
	q.original = q.items.Tracks()
	q.context = nil
	q.pool = nil
	if ctx != nil {
		c := *ctx
		c.Tracks = append([]Track(nil), ctx.Tracks...)
		q.context = &c
		q.pool = append([]Track(nil), ctx.Tracks...)
	}
	q.shuffled = false

	switch {
	case len(tracks) == 0:
		q.currentIndex = -1
	case startIndex < 0:
		q.currentIndex = 0
	case startIndex >= len(tracks):
		q.currentIndex = len(tracks) - 1
	default:
		q.currentIndex = startIndex
	}
}

// Current returns the current track, or nil if the queue is empty.
func (q *Queue) Current() *Track {
	return q.items.Track(q.currentIndex)
}

// CurrentIndex returns the index of the current track (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// Context returns the originating collection, if any.
func (q *Queue) Context() *Context {
	return q.context
}

// Shuffled reports whether the items are currently in shuffled order.
func (q *Queue) Shuffled() bool {
	return q.shuffled
}

// Tracks returns a copy of the items in play order.
func (q *Queue) Tracks() []Track {
	return q.items.Tracks()
}

// OriginalOrder returns a copy of the saved pre-shuffle order.
func (q *Queue) OriginalOrder() []Track {
	return append([]Track(nil), q.original...)
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return q.items.Len()
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.items.Len() == 0
}

// IsLast reports whether the current track is the final one.
func (q *Queue) IsLast() bool {
	return q.currentIndex >= 0 && q.currentIndex == q.items.Len()-1
}

// Advance moves to the next track. At the end it wraps to 0 when autoplay is
// set; otherwise it stays on the last track and reports stop.
func (q *Queue) Advance(autoplay bool) (index int, stop bool) {
	if q.IsEmpty() {
		return -1, true
	}
	if q.currentIndex < q.items.Len()-1 {
		q.currentIndex++
		return q.currentIndex, false
	}
	if autoplay {
		q.currentIndex = 0
		return 0, false
	}
	return q.currentIndex, true
}

// Retreat moves to the previous track, unless the position is past the
// threshold or the queue is already at its start, in which case it reports
// that the current track should restart.
func (q *Queue) Retreat(position, threshold float64) (index int, restart bool) {
	if q.IsEmpty() {
		return -1, false
	}
	if position > threshold || q.currentIndex == 0 {
		return q.currentIndex, true
	}
	q.currentIndex--
	return q.currentIndex, false
}

// JumpTo sets the current index. Out-of-range requests are ignored.
func (q *Queue) JumpTo(index int) bool {
	if index < 0 || index >= q.items.Len() {
		return false
	}
	q.currentIndex = index
	return true
}

// ToggleShuffle flips between shuffled and original order and returns the
// new state.
func (q *Queue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffled)
	return q.shuffled
}

// SetShuffle puts the queue in shuffled or original order. The current track
// moves to the front when shuffling; when restoring, the index follows the
// current track or falls back to 0 if it is no longer in the original order.
func (q *Queue) SetShuffle(on bool) {
	if on == q.shuffled {
		return
	}
	q.shuffled = on
	if q.IsEmpty() {
		return
	}
	current := *q.Current()

	if on {
		source := q.original
		if q.context != nil {
			source = q.pool
		}
		rest := make([]Track, 0, len(source))
		skipped := false
		for _, t := range source {
			if !skipped && t.ID == current.ID {
				skipped = true
				continue
			}
			rest = append(rest, t)
		}
		q.shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		q.items.Replace(append([]Track{current}, rest...))
		q.currentIndex = 0
		return
	}

	q.items.Replace(q.original)
	if q.items.Len() == 0 {
		q.currentIndex = -1
		return
	}
	_, idx, found := lo.FindIndexOf(q.original, func(t Track) bool { return t.ID == current.ID })
	if !found {
		idx = 0
	}
	q.currentIndex = idx
}

// Add appends tracks without changing the current index, except on an empty
// queue where the first added track becomes current.
func (q *Queue) Add(tracks ...Track) {
	if len(tracks) == 0 {
		return
	}
	q.items.Add(tracks...)
	q.original = append(q.original, tracks...)
	if q.context != nil {
		q.pool = append(q.pool, tracks...)
	}
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
}

// RemoveAt removes the track at index. Removing before the current track
// shifts the index so it keeps pointing at the same track. Removing the
// current track makes the following one current. Returns false if index is
// invalid.
func (q *Queue) RemoveAt(index int) bool {
	removed := q.items.Track(index)
	if removed == nil {
		return false
	}
	id := removed.ID
	q.items.Remove(index)
	if q.shuffled {
		q.original = removeFirst(q.original, id)
	} else {
		q.original = q.items.Tracks()
	}
	q.pool = removeFirst(q.pool, id)

	switch {
	case q.items.Len() == 0:
		q.currentIndex = -1
	case index < q.currentIndex:
		q.currentIndex--
	case q.currentIndex >= q.items.Len():
		q.currentIndex = q.items.Len() - 1
	}
	return true
}

// Move reorders the queue, keeping the current index on the same track.
func (q *Queue) Move(from, to int) bool {
	if !q.items.Move(from, to) {
		return false
	}
	switch {
	case q.currentIndex == from:
		q.currentIndex = to
	case from < q.currentIndex && to >= q.currentIndex:
		q.currentIndex--
	case from > q.currentIndex && to <= q.currentIndex:
		q.currentIndex++
	}
	if !q.shuffled {
		q.original = q.items.Tracks()
	}
	return true
}

// Clear empties the queue and forgets the context.
func (q *Queue) Clear() {
	q.items.Clear()
	q.original = nil
	q.pool = nil
	q.context = nil
	q.currentIndex = -1
	q.shuffled = false
}

func removeFirst(tracks []Track, id string) []Track {
	_, i, ok := lo.FindIndexOf(tracks, func(t Track) bool { return t.ID == id })
	if !ok {
		return tracks
	}
	return append(tracks[:i], tracks[i+1:]...)
}
