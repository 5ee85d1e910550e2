package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ImageDisplayDuration is how long a static image is held as the
// reference before it is treated as ended, standing in for the
// end-of-stream a video would deliver.
const ImageDisplayDuration = 5 * time.Second

// ImageSource serves a single static image as a frame source. Every
// read returns a fresh clone of the same frame until the display
// duration has elapsed.
type ImageSource struct {
	path     string
	frame    gocv.Mat
	mu       sync.Mutex
	running  bool
	openedAt time.Time
	duration time.Duration
	now      func() time.Time
}

// NewImageSource creates an ImageSource for the given file path.
func NewImageSource(path string) *ImageSource {
	return &ImageSource{
		path:     path,
		duration: ImageDisplayDuration,
		now:      time.Now,
	}
}

// Open decodes the image file and starts the display timer.
func (s *ImageSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	frame := gocv.IMRead(s.path, gocv.IMReadColor)
	if frame.Empty() {
		frame.Close()
		return fmt.Errorf("failed to read image %s", s.path)
	}

	s.frame = frame
	s.running = true
	s.openedAt = s.now()

	return nil
}

// Close releases the decoded image.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.frame.Close()
	s.running = false

	return err
}

// ReadFrame returns a clone of the image. The caller owns the
// returned Mat.
func (s *ImageSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrNotOpen
	}
	if s.ended() {
		return nil, errors.New("image display has ended")
	}

	clone := s.frame.Clone()
	return &clone, nil
}

// Dimensions returns the native size of the image.
func (s *ImageSource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0, 0
	}
	return s.frame.Cols(), s.frame.Rows()
}

// Ended reports whether the display duration has elapsed since Open.
func (s *ImageSource) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.ended()
}

func (s *ImageSource) ended() bool {
	return s.now().Sub(s.openedAt) >= s.duration
}

// IsOpen returns true if the image is currently loaded.
func (s *ImageSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
