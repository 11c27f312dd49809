package player

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

const (
	formatMP3  = "mp3"
	formatFLAC = "flac"
	formatWAV  = "wav"
)

const progressStep = 64 * 1024

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerOnce.Do(func() {
		speakerRate = rate
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
	})
	return speakerRate, speakerErr
}

// BeepOpener streams tracks over HTTP and plays them through the beep
// speaker. The stream is fetched on first Play.
type BeepOpener struct {
	client           *http.Client
	positionInterval time.Duration
	log              zerolog.Logger
}

// NewBeepOpener creates an opener. A nil client uses http.DefaultClient.
func NewBeepOpener(client *http.Client, positionInterval time.Duration, log zerolog.Logger) *BeepOpener {
	if client == nil {
		client = http.DefaultClient
	}
	if positionInterval <= 0 {
		positionInterval = 250 * time.Millisecond
	}
	return &BeepOpener{
		client:           client,
		positionInterval: positionInterval,
		log:              log.With().Str("component", "beep").Logger(),
	}
}

func (o *BeepOpener) Open(track playlist.Track, l Listener) (Output, error) {
	if track.StreamURL == "" {
		return nil, errors.Wrap(ErrUnsupportedSource, "empty stream url")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &beepOutput{
		opener: o,
		track:  track,
		events: l,
		ctx:    ctx,
		cancel: cancel,
		level:  1,
	}, nil
}

type beepOutput struct {
	opener *BeepOpener
	track  playlist.Track
	events Listener
	ctx    context.Context
	cancel context.CancelFunc

	loadMu sync.Mutex

	mu          sync.Mutex
	state       State
	playReq     uint64
	closed      bool
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	level       float64
	pendingSeek time.Duration
	stopTick    chan struct{}
}

func (o *beepOutput) Play(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.playReq++
	req := o.playReq
	o.mu.Unlock()

	if err := o.load(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.playReq != req {
		return ErrAborted
	}
	if o.ctrl != nil {
		speaker.Lock()
		o.ctrl.Paused = false
		speaker.Unlock()
		o.state = Playing
		return nil
	}

	rate, err := initSpeaker(o.format.SampleRate)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "init speaker"), ErrPlayRejected)
	}
	var s beep.Streamer = o.streamer
	if o.format.SampleRate != rate {
		s = beep.Resample(4, o.format.SampleRate, rate, o.streamer)
	}
	o.ctrl = &beep.Ctrl{Streamer: s}
	o.volume = &effects.Volume{
		Streamer: o.ctrl,
		Base:     2,
		Volume:   levelToVolume(o.level),
		Silent:   o.level <= 0,
	}
	speaker.Play(beep.Seq(o.volume, beep.Callback(func() {
		// Runs under the speaker lock.
		go o.finished()
	})))
	o.stopTick = make(chan struct{})
	go o.tick(o.stopTick)
	o.state = Playing
	return nil
}

// load fetches and decodes the stream once.
func (o *beepOutput) load(ctx context.Context) error {
	o.loadMu.Lock()
	defer o.loadMu.Unlock()

	o.mu.Lock()
	loaded := o.streamer != nil
	o.mu.Unlock()
	if loaded {
		return nil
	}

	o.events.BufferingChanged(true)
	defer o.events.BufferingChanged(false)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, o.track.StreamURL, nil)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "build stream request"), ErrUnsupportedSource)
	}
	resp, err := o.opener.client.Do(req)
	if err != nil {
		if o.ctx.Err() != nil {
			return ErrAborted
		}
		return errors.Wrap(err, "fetch stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrUnsupportedSource, "stream status %d", resp.StatusCode)
	}

	kind := detectFormat(resp.Header.Get("Content-Type"), o.track.StreamURL)
	if kind == "" {
		return errors.Wrapf(ErrUnsupportedSource, "content type %q", resp.Header.Get("Content-Type"))
	}

	body := &progressReader{
		r:        resp.Body,
		total:    resp.ContentLength,
		duration: o.track.Duration,
		events:   o.events,
	}
	data, err := io.ReadAll(body)
	if err != nil {
		if o.ctx.Err() != nil {
			return ErrAborted
		}
		return errors.Wrap(err, "read stream")
	}
	o.opener.log.Debug().
		Str("track", o.track.ID).
		Str("format", kind).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("stream fetched")

	streamer, format, err := decode(kind, data)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s", kind), ErrUnsupportedSource)
	}
	duration := format.SampleRate.D(streamer.Len())

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		_ = streamer.Close()
		return ErrAborted
	}
	o.streamer = streamer
	o.format = format
	if o.pendingSeek > 0 {
		o.seekLocked(o.pendingSeek)
	}
	o.mu.Unlock()

	o.events.MetadataLoaded(duration)
	o.events.BufferedUpdated(duration)
	return nil
}

func (o *beepOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playReq++
	if o.ctrl != nil {
		speaker.Lock()
		o.ctrl.Paused = true
		speaker.Unlock()
	}
	if o.state.CanPause() {
		o.state = Paused
	}
}

func (o *beepOutput) Seek(to time.Duration) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.streamer == nil {
		o.pendingSeek = to
		o.mu.Unlock()
		return
	}
	o.seekLocked(to)
	pos := o.positionLocked()
	o.mu.Unlock()
	o.events.TimeUpdated(pos)
}

func (o *beepOutput) seekLocked(to time.Duration) {
	n := o.format.SampleRate.N(to)
	if last := o.streamer.Len() - 1; n > last {
		n = max(last, 0)
	}
	if n < 0 {
		n = 0
	}
	speaker.Lock()
	err := o.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		o.opener.log.Warn().Err(err).Str("track", o.track.ID).Msg("seek")
	}
}

func (o *beepOutput) SetVolume(level float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.level = clampLevel(level)
	if o.volume != nil {
		speaker.Lock()
		o.volume.Volume = levelToVolume(o.level)
		o.volume.Silent = o.level <= 0
		speaker.Unlock()
	}
}

func (o *beepOutput) Position() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.positionLocked()
}

func (o *beepOutput) positionLocked() time.Duration {
	if o.streamer == nil {
		return o.pendingSeek
	}
	speaker.Lock()
	defer speaker.Unlock()
	return o.format.SampleRate.D(o.streamer.Position())
}

func (o *beepOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.state = Stopped
	o.cancel()
	if o.stopTick != nil {
		close(o.stopTick)
	}
	if o.ctrl != nil {
		speaker.Lock()
		o.ctrl.Paused = true
		o.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if o.streamer != nil {
		return o.streamer.Close()
	}
	return nil
}

func (o *beepOutput) finished() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.state = Stopped
	o.mu.Unlock()
	o.events.Ended()
}

func (o *beepOutput) tick(stop <-chan struct{}) {
	t := time.NewTicker(o.opener.positionInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			o.mu.Lock()
			if o.state != Playing {
				o.mu.Unlock()
				continue
			}
			pos := o.positionLocked()
			o.mu.Unlock()
			o.events.TimeUpdated(pos)
		}
	}
}

func detectFormat(contentType, streamURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3":
			return formatMP3
		case "audio/flac", "audio/x-flac":
			return formatFLAC
		case "audio/wav", "audio/x-wav", "audio/wave":
			return formatWAV
		}
	}
	u, err := url.Parse(streamURL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp3":
		return formatMP3
	case ".flac":
		return formatFLAC
	case ".wav":
		return formatWAV
	}
	return ""
}

func decode(kind string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch kind {
	case formatMP3:
		return mp3.Decode(readSeekNopCloser{r})
	case formatFLAC:
		if err := skipID3v2(r); err != nil {
			return nil, beep.Format{}, err
		}
		return flac.Decode(r)
	case formatWAV:
		return wav.Decode(r)
	}
	return nil, beep.Format{}, errors.Newf("unknown format %q", kind)
}

// readSeekNopCloser keeps the reader seekable for the mp3 decoder.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// progressReader reports download progress as buffered seconds when both the
// content length and the track duration are known.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	reported int64
	duration time.Duration
	events   Listener
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.duration > 0 && p.read-p.reported >= progressStep {
		p.reported = p.read
		frac := float64(min(p.read, p.total)) / float64(p.total)
		p.events.BufferedUpdated(time.Duration(frac * float64(p.duration)))
	}
	return n, err
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the stream.
// Some FLAC files have ID3v2 tags prepended, which the FLAC decoder doesn't handle.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is stored as a syncsafe integer in bytes 6-9
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])

	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
