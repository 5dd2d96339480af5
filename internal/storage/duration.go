package storage

import (
	"errors"
	"io"
	"math"

	"github.com/tcolgate/mp3"
)

// ProbeMP3Duration sums frame durations of an MP3 stream, in seconds.
func ProbeMP3Duration(r io.Reader) (float64, error) {
	var (
		dur     float64
		dec     = mp3.NewDecoder(r)
		frame   mp3.Frame
		skipped int
		frames  int
	)

	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		dur += frame.Duration().Seconds()
		frames++
	}

	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return math.Round(dur*100) / 100, nil
}
