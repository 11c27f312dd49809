package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// maxThumbnailSize bounds a downloaded thumbnail.
const maxThumbnailSize = 5 << 20

// ThumbnailCache keeps local copies of track thumbnails, since notification
// servers only accept file paths or icon names.
type ThumbnailCache struct {
	dir    string
	client *http.Client
	log    zerolog.Logger
}

// NewThumbnailCache stores thumbnails under dir.
func NewThumbnailCache(dir string, client *http.Client, log zerolog.Logger) *ThumbnailCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &ThumbnailCache{
		dir:    dir,
		client: client,
		log:    log.With().Str("component", "thumbnails").Logger(),
	}
}

// Path returns a local file for the track thumbnail, fetching it on first
// use. It returns "" when the track has none or the download fails.
func (c *ThumbnailCache) Path(ctx context.Context, track playlist.Track) string {
	if track.ThumbnailURL == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(track.ThumbnailURL))
	path := filepath.Join(c.dir, hex.EncodeToString(sum[:16]))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if err := c.fetch(ctx, track.ThumbnailURL, path); err != nil {
		c.log.Debug().Err(err).Str("track", track.ID).Msg("thumbnail unavailable")
		return ""
	}
	return path
}

func (c *ThumbnailCache) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(err, "create cache dir")
	}
	tmp, err := os.CreateTemp(c.dir, "thumb-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, io.LimitReader(resp.Body, maxThumbnailSize))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "write thumbnail")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "store thumbnail")
}
