package capture

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestVideoSource_NotOpen(t *testing.T) {
	v := NewVideoSource("reference.mp4")

	if v.IsOpen() {
		t.Error("IsOpen() should be false before Open()")
	}
	if v.Ended() {
		t.Error("Ended() should be false before Open()")
	}

	if _, err := v.ReadFrame(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrNotOpen", err)
	}
	if err := v.Seek(1000); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Seek() error = %v, want ErrNotOpen", err)
	}

	if w, h := v.Dimensions(); w != 0 || h != 0 {
		t.Errorf("Dimensions() = %dx%d, want 0x0 when closed", w, h)
	}
	if fps := v.SourceFPS(); fps != 0 {
		t.Errorf("SourceFPS() = %v, want 0 when closed", fps)
	}
}

func TestVideoSource_Rate(t *testing.T) {
	v := NewVideoSource("reference.mp4")

	if got := v.Rate(); got != DefaultPlaybackRate {
		t.Errorf("Rate() = %v, want %v", got, DefaultPlaybackRate)
	}

	v.SetRate(2.0)
	if got := v.Rate(); got != 2.0 {
		t.Errorf("Rate() = %v, want 2.0", got)
	}

	// Non-positive rates keep the previous value
	v.SetRate(0)
	v.SetRate(-1)
	if got := v.Rate(); got != 2.0 {
		t.Errorf("Rate() = %v, want 2.0 after invalid rates", got)
	}
}

func TestVideoSource_PauseResume(t *testing.T) {
	v := NewVideoSource("reference.mp4")

	if v.Paused() {
		t.Error("Paused() should be false initially")
	}

	v.Pause()
	if !v.Paused() {
		t.Error("Paused() should be true after Pause()")
	}

	v.Resume()
	if v.Paused() {
		t.Error("Paused() should be false after Resume()")
	}
}

func TestVideoSource_OpenMissingFile(t *testing.T) {
	v := NewVideoSource(filepath.Join(t.TempDir(), "missing.mp4"))

	if err := v.Open(); err == nil {
		v.Close()
		t.Fatal("Open() should fail for a missing file")
	}
	if v.IsOpen() {
		t.Error("IsOpen() should be false after failed Open()")
	}
}

func TestVideoSource_CloseNotOpened(t *testing.T) {
	v := NewVideoSource("reference.mp4")

	if err := v.Close(); err != nil {
		t.Errorf("Close() on unopened source should return nil, got %v", err)
	}
}
