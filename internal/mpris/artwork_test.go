package mpris

import (
	"testing"

	"github.com/llehouerou/wavestream/internal/media"
)

func TestLargestArtwork(t *testing.T) {
	tests := []struct {
		name string
		art  []media.Artwork
		want string
	}{
		{"empty", nil, ""},
		{"single", []media.Artwork{{URL: "a", Sizes: "96x96"}}, "a"},
		{"picks largest", []media.Artwork{
			{URL: "small", Sizes: "96x96"},
			{URL: "big", Sizes: "512x512"},
			{URL: "mid", Sizes: "256x256"},
		}, "big"},
		{"unparsable size", []media.Artwork{{URL: "x", Sizes: "any"}}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := largestArtwork(tt.art); got != tt.want {
				t.Errorf("largestArtwork() = %q, want %q", got, tt.want)
			}
		})
	}
}
