package vkr

import (
	"fmt"
	"time"
)

// Outcome classifies the result of an acquire or present call. The platform
// layer maps raw result codes into these three categories so the frame loop
// can decide locally whether to proceed, rebuild or abort; hard failures
// travel separately as errors.
type Outcome int

const (
	// OutcomeOptimal means the surface matches the window and the call
	// succeeded outright.
	OutcomeOptimal Outcome = iota
	// OutcomeSuboptimal means the call succeeded but the surface no longer
	// matches the window exactly. Usable, but worth rebuilding.
	OutcomeSuboptimal
	// OutcomeOutOfDate means the surface is incompatible with the window
	// and must be rebuilt before any further use.
	OutcomeOutOfDate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOptimal:
		return "optimal"
	case OutcomeSuboptimal:
		return "suboptimal"
	case OutcomeOutOfDate:
		return "out-of-date"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// FrameSync is the host side fence surface the frame loop drives. *Device
// implements it against real fences.
type FrameSync interface {
	// WaitSlot blocks until the slot's most recent submission completes,
	// or the timeout expires (zero waits forever).
	WaitSlot(s *FrameSlot, timeout time.Duration) error
	// ResetSlot returns the slot's fence to the unsignaled state.
	ResetSlot(s *FrameSlot) error
}

// Surface is the presentable surface the frame loop renders to.
// *SurfaceState implements it against a real swapchain.
type Surface interface {
	Acquire(slot *FrameSlot) (image int, outcome Outcome, err error)
	Record(image int) *ImageRecord
	Submit(rec *ImageRecord, slot *FrameSlot) error
	Present(image int, slot *FrameSlot) (Outcome, error)
	Rebuild() error
}

var _ FrameSync = (*Device)(nil)
var _ Surface = (*SurfaceState)(nil)

// FrameLoop runs one frame at a time through acquire, submit and present,
// cycling through a fixed set of frame slots and routing every surface
// invalidation - whether reported by acquire, by present, or by the window
// system's resize callback - through the surface's single rebuild path.
//
// The loop is driven from one goroutine; the device executes submitted work
// asynchronously and reports back through the slot primitives.
type FrameLoop struct {
	// SyncTimeout bounds every fence wait. Zero waits forever. An expired
	// wait surfaces as ErrSyncTimeout and leaves the loop in a state where
	// the same frame may simply be retried.
	SyncTimeout time.Duration

	sync    FrameSync
	surface Surface
	slots   []*FrameSlot

	frame  int
	resize bool
}

func NewFrameLoop(sync FrameSync, surface Surface, slots []*FrameSlot) *FrameLoop {
	return &FrameLoop{
		sync:    sync,
		surface: surface,
		slots:   slots,
	}
}

// FrameIndex returns the index of the slot the next frame will use. It only
// advances after a frame has actually been rendered.
func (l *FrameLoop) FrameIndex() int {
	return l.frame
}

// RequestResize flags that the window geometry changed. The flag is level
// triggered: it stays set until a frame consumes it and rebuilds the
// surface. Not every platform reports an out-of-date surface on resize, so
// the window callback must feed this in explicitly.
func (l *FrameLoop) RequestResize() {
	l.resize = true
}

// DrawFrame renders and presents one frame.
//
// The slot's fence is waited on before any of its primitives are reused,
// and if the acquired image was last written by a different slot, that
// slot's fence is waited out too - the platform may hand out more or fewer
// images than there are slots, and an image must never be rewritten while
// an earlier frame is still rendering to it.
//
// A stale surface discovered at acquire time aborts the frame and rebuilds
// without advancing the frame index; discovered at present time (or via a
// pending resize request) it rebuilds but still advances, since the frame
// did render. Everything else is a hard error.
func (l *FrameLoop) DrawFrame() error {
	slot := l.slots[l.frame]

	if err := l.sync.WaitSlot(slot, l.SyncTimeout); err != nil {
		return err
	}

	image, outcome, err := l.surface.Acquire(slot)
	if err != nil {
		return fmt.Errorf("error acquiring swapchain image: %w", err)
	}
	if outcome == OutcomeOutOfDate {
		return l.surface.Rebuild()
	}

	rec := l.surface.Record(image)
	if rec.owner != nil && rec.owner != slot {
		if err := l.sync.WaitSlot(rec.owner, l.SyncTimeout); err != nil {
			return err
		}
	}
	rec.owner = slot

	if err := l.sync.ResetSlot(slot); err != nil {
		return err
	}

	if err := l.surface.Submit(rec, slot); err != nil {
		return fmt.Errorf("error submitting draw commands: %w", err)
	}

	outcome, err = l.surface.Present(image, slot)
	if err != nil {
		return fmt.Errorf("error presenting image: %w", err)
	}
	if outcome != OutcomeOptimal || l.resize {
		l.resize = false
		if err := l.surface.Rebuild(); err != nil {
			return err
		}
	}

	l.frame = (l.frame + 1) % len(l.slots)
	return nil
}
