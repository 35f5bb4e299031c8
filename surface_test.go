package vkr

import (
	"testing"
)

func TestWaitDrawableRetriesWhileMinimized(t *testing.T) {
	sizes := [][2]int{{0, 0}, {0, 0}, {800, 600}}
	calls := 0
	waits := 0

	s := &SurfaceState{
		DrawableSize: func() (int, int) {
			size := sizes[calls]
			if calls < len(sizes)-1 {
				calls++
			}
			return size[0], size[1]
		},
		WaitEvents: func() {
			waits++
		},
	}

	width, height := s.waitDrawable()
	if width != 800 || height != 600 {
		t.Errorf("waitDrawable() = %dx%d, want 800x600", width, height)
	}
	if waits != 2 {
		t.Errorf("waited for events %d times, want 2", waits)
	}
}

func TestWaitDrawableNoWaitWhenVisible(t *testing.T) {
	waits := 0
	s := &SurfaceState{
		DrawableSize: func() (int, int) { return 640, 480 },
		WaitEvents:   func() { waits++ },
	}

	width, height := s.waitDrawable()
	if width != 640 || height != 480 {
		t.Errorf("waitDrawable() = %dx%d, want 640x480", width, height)
	}
	if waits != 0 {
		t.Errorf("waited for events %d times, want 0", waits)
	}
}

func TestZeroHeightAloneStillBlocks(t *testing.T) {
	sizes := [][2]int{{800, 0}, {800, 600}}
	calls := 0
	waits := 0

	s := &SurfaceState{
		DrawableSize: func() (int, int) {
			size := sizes[calls]
			if calls < len(sizes)-1 {
				calls++
			}
			return size[0], size[1]
		},
		WaitEvents: func() { waits++ },
	}

	width, height := s.waitDrawable()
	if width != 800 || height != 600 {
		t.Errorf("waitDrawable() = %dx%d, want 800x600", width, height)
	}
	if waits != 1 {
		t.Errorf("waited for events %d times, want 1", waits)
	}
}
