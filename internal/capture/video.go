package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultPlaybackRate is the normal-speed playback multiplier.
const DefaultPlaybackRate = 1.0

// VideoSource plays back a reference video file. Unlike a live camera it
// has a finite length: once the last frame has been read, Ended reports
// true and further reads fail.
type VideoSource struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	paused  bool
	ended   bool
	rate    float64

	// last holds the most recently delivered frame so reads while
	// paused return a frozen picture without advancing playback.
	last    gocv.Mat
	hasLast bool
}

// NewVideoSource creates a VideoSource for the given file path.
// The file is not opened until Open is called.
func NewVideoSource(path string) *VideoSource {
	return &VideoSource{
		path: path,
		rate: DefaultPlaybackRate,
	}
}

// Open opens the video file and rewinds playback state.
func (v *VideoSource) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(v.path)
	if err != nil {
		return fmt.Errorf("failed to open video %s: %w", v.path, err)
	}

	v.capture = capture
	v.running = true
	v.paused = false
	v.ended = false
	v.last = gocv.NewMat()
	v.hasLast = false

	return nil
}

// Close releases the underlying capture.
func (v *VideoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	v.last.Close()
	v.hasLast = false

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// ReadFrame reads the next frame of the video. While paused it returns a
// copy of the last delivered frame without advancing playback. A failed
// read on an open capture marks the source as ended rather than being
// treated as an error state the caller has to distinguish. The caller
// owns the returned Mat.
func (v *VideoSource) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrNotOpen
	}
	if v.ended {
		return nil, errors.New("video has ended")
	}

	if v.paused && v.hasLast {
		frozen := v.last.Clone()
		return &frozen, nil
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		v.ended = true
		return nil, errors.New("video has ended")
	}

	mat.CopyTo(&v.last)
	v.hasLast = true

	return &mat, nil
}

// Seek jumps playback to the given millisecond offset and clears the
// ended flag so reads resume from there.
func (v *VideoSource) Seek(ms float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return ErrNotOpen
	}

	v.capture.Set(gocv.VideoCapturePosMsec, ms)
	v.ended = false
	return nil
}

// PositionMs returns the current playback offset in milliseconds.
func (v *VideoSource) PositionMs() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return 0
	}
	return v.capture.Get(gocv.VideoCapturePosMsec)
}

// SourceFPS returns the frame rate recorded in the video container,
// or 0 if the source is not open or does not report one.
func (v *VideoSource) SourceFPS() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return 0
	}
	return v.capture.Get(gocv.VideoCaptureFPS)
}

// Dimensions returns the native frame size of the video.
func (v *VideoSource) Dimensions() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture != nil {
		w := int(v.capture.Get(gocv.VideoCaptureFrameWidth))
		h := int(v.capture.Get(gocv.VideoCaptureFrameHeight))
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return 0, 0
}

// SetRate sets the playback speed multiplier. Values less than or
// equal to 0 are ignored. The rate only affects how often the caller
// should read frames, not the capture itself.
func (v *VideoSource) SetRate(rate float64) {
	if rate <= 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.rate = rate
}

// Rate returns the current playback speed multiplier.
func (v *VideoSource) Rate() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rate
}

// Pause suspends playback. Reads are expected to stop while paused.
func (v *VideoSource) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
}

// Resume continues playback after a pause.
func (v *VideoSource) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = false
}

// Paused reports whether playback is currently paused.
func (v *VideoSource) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// Ended reports whether playback has run past the last frame.
func (v *VideoSource) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ended
}

// IsOpen returns true if the video file is currently open.
func (v *VideoSource) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}
