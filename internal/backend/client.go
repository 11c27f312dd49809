// Package backend is the client of the music library REST API: track and
// playlist listings, play counts and listening time.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Config represents backend client configuration.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the library API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a new backend client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "parse backend url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "backend").Logger(),
	}, nil
}

type trackDTO struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	StreamURL    string  `json:"streamUrl"`
	Duration     float64 `json:"duration"`
}

func (d trackDTO) toTrack() playlist.Track {
	return playlist.Track{
		ID:           d.ID,
		Title:        d.Title,
		Uploader:     d.Uploader,
		ThumbnailURL: d.ThumbnailURL,
		StreamURL:    d.StreamURL,
		Duration:     time.Duration(d.Duration * float64(time.Second)),
	}
}

type playlistDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Tracks []trackDTO `json:"tracks"`
}

type listenRequest struct {
	Seconds float64 `json:"seconds"`
}

// Tracks lists every track of the library.
func (c *Client) Tracks(ctx context.Context) ([]playlist.Track, error) {
	var dtos []trackDTO
	if err := c.do(ctx, http.MethodGet, "/api/songs", nil, &dtos); err != nil {
		return nil, errors.Wrap(err, "list tracks")
	}
	return toTracks(dtos), nil
}

// Playlist fetches a playlist as a playback context.
func (c *Client) Playlist(ctx context.Context, id string) (*playlist.Context, error) {
	var dto playlistDTO
	if err := c.do(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(id), nil, &dto); err != nil {
		return nil, errors.Wrapf(err, "get playlist %s", id)
	}
	return &playlist.Context{ID: dto.ID, Name: dto.Name, Tracks: toTracks(dto.Tracks)}, nil
}

// RecordPlay counts one play of a playlist.
func (c *Client) RecordPlay(ctx context.Context, contextID string) error {
	path := "/api/playlists/" + url.PathEscape(contextID) + "/play"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return errors.Wrapf(err, "record play %s", contextID)
	}
	return nil
}

// ReportListeningTime adds elapsed listening time to a track.
func (c *Client) ReportListeningTime(ctx context.Context, track playlist.Track, elapsed time.Duration) error {
	path := "/api/songs/" + url.PathEscape(track.ID) + "/listen"
	body := listenRequest{Seconds: elapsed.Seconds()}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return errors.Wrapf(err, "report listening time %s", track.ID)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func toTracks(dtos []trackDTO) []playlist.Track {
	tracks := make([]playlist.Track, 0, len(dtos))
	for _, d := range dtos {
		tracks = append(tracks, d.toTrack())
	}
	return tracks
}
