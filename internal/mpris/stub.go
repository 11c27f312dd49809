//go:build !linux

package mpris

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/media"
)

// Session is unavailable on non-Linux platforms.
type Session struct {
	media.Noop
}

// Available reports false on non-Linux platforms.
func Available() bool { return false }

// New always fails on non-Linux platforms; callers fall back to media.Noop.
func New(_ string, _ zerolog.Logger) (*Session, error) {
	return nil, errors.New("mpris is only available on linux")
}
