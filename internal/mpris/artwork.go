package mpris

import (
	"strconv"
	"strings"

	"github.com/llehouerou/wavestream/internal/media"
)

// largestArtwork picks the biggest rendition, since MPRIS takes a single URL.
func largestArtwork(art []media.Artwork) string {
	best, bestSize := "", -1
	for _, a := range art {
		w, _, _ := strings.Cut(a.Sizes, "x")
		size, err := strconv.Atoi(w)
		if err != nil {
			size = 0
		}
		if size > bestSize {
			best, bestSize = a.URL, size
		}
	}
	return best
}
