package vkr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// frameRecorder is shared between the fake sync and surface so ordering
// between fence waits, resets, submits and presents can be asserted.
type frameRecorder struct {
	events []string
}

func (r *frameRecorder) record(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeSync struct {
	rec     *frameRecorder
	waitErr error
}

func (f *fakeSync) WaitSlot(s *FrameSlot, timeout time.Duration) error {
	if f.waitErr != nil {
		return f.waitErr
	}
	f.rec.record("wait %d", s.Index)
	return nil
}

func (f *fakeSync) ResetSlot(s *FrameSlot) error {
	f.rec.record("reset %d", s.Index)
	return nil
}

// fakeSurface hands out images round robin and plays back scripted acquire
// and present outcomes, defaulting to optimal once a script runs out.
type fakeSurface struct {
	rec *frameRecorder

	records []*ImageRecord
	next    int

	acquireScript []Outcome
	presentScript []Outcome
	acquires      int
	presents      int
	rebuilds      int
}

func newFakeSurface(rec *frameRecorder, images int) *fakeSurface {
	s := &fakeSurface{rec: rec}
	for i := 0; i < images; i++ {
		s.records = append(s.records, &ImageRecord{})
	}
	return s
}

func scripted(script []Outcome, call int) Outcome {
	if call < len(script) {
		return script[call]
	}
	return OutcomeOptimal
}

func (f *fakeSurface) Acquire(slot *FrameSlot) (int, Outcome, error) {
	outcome := scripted(f.acquireScript, f.acquires)
	f.acquires++
	if outcome == OutcomeOutOfDate {
		return 0, outcome, nil
	}
	image := f.next
	f.next = (f.next + 1) % len(f.records)
	f.rec.record("acquire %d by %d", image, slot.Index)
	return image, outcome, nil
}

func (f *fakeSurface) Record(image int) *ImageRecord {
	return f.records[image]
}

func (f *fakeSurface) Submit(rec *ImageRecord, slot *FrameSlot) error {
	f.rec.record("submit by %d", slot.Index)
	return nil
}

func (f *fakeSurface) Present(image int, slot *FrameSlot) (Outcome, error) {
	outcome := scripted(f.presentScript, f.presents)
	f.presents++
	f.rec.record("present %d by %d", image, slot.Index)
	return outcome, nil
}

func (f *fakeSurface) Rebuild() error {
	f.rebuilds++
	// A rebuild replaces every image record, dropping slot ownership.
	for i := range f.records {
		f.records[i] = &ImageRecord{}
	}
	f.next = 0
	return nil
}

func makeSlots(n int) []*FrameSlot {
	slots := make([]*FrameSlot, n)
	for i := range slots {
		slots[i] = &FrameSlot{Index: i}
	}
	return slots
}

func TestSteadyStateCycling(t *testing.T) {
	rec := &frameRecorder{}
	surface := newFakeSurface(rec, 3)
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	for i := 0; i < 10; i++ {
		if got := loop.FrameIndex(); got != i%2 {
			t.Fatalf("before frame %d: FrameIndex() = %d, want %d", i, got, i%2)
		}
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if surface.presents != 10 {
		t.Errorf("presents = %d, want 10", surface.presents)
	}
	if surface.rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", surface.rebuilds)
	}
}

func TestSlotFenceWaitedBeforeReuse(t *testing.T) {
	rec := &frameRecorder{}
	// Equal slot and image counts: no cross slot ownership waits, so every
	// wait event belongs to the slot about to be reused.
	surface := newFakeSurface(rec, 2)
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	for i := 0; i < 6; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	frame := 0
	for _, ev := range rec.events {
		var idx int
		if _, err := fmt.Sscanf(ev, "wait %d", &idx); err == nil {
			if idx != frame%2 {
				t.Fatalf("frame %d waited on slot %d, want %d (events: %v)", frame, idx, frame%2, rec.events)
			}
			frame++
		}
	}
	if frame != 6 {
		t.Errorf("saw %d slot waits, want 6", frame)
	}
}

func TestImageReuseWaitsOnOwningSlot(t *testing.T) {
	rec := &frameRecorder{}
	// Three images over two slots: image 0 is first written under slot 0,
	// and reacquired on frame 3 by slot 1, which must wait out slot 0's
	// fence before resetting its own.
	surface := newFakeSurface(rec, 3)
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	for i := 0; i < 4; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	// Frame 3 (slot 1, image 0) must produce: wait 1, acquire 0 by 1,
	// wait 0 (the owner), reset 1.
	want := []string{"wait 1", "acquire 0 by 1", "wait 0", "reset 1"}
	start := -1
	for i, ev := range rec.events {
		if ev == "acquire 0 by 1" {
			start = i - 1
		}
	}
	if start < 0 || start+len(want) > len(rec.events) {
		t.Fatalf("did not find reacquire sequence in events: %v", rec.events)
	}
	for i, w := range want {
		if rec.events[start+i] != w {
			t.Fatalf("event %d = %q, want %q (events: %v)", start+i, rec.events[start+i], w, rec.events)
		}
	}

	if owner := surface.records[0].owner; owner == nil || owner.Index != 1 {
		t.Errorf("image 0 owner = %v, want slot 1", owner)
	}
}

func TestStaleAcquireRebuildsWithoutAdvancing(t *testing.T) {
	rec := &frameRecorder{}
	surface := newFakeSurface(rec, 3)
	surface.acquireScript = []Outcome{
		OutcomeOptimal, OutcomeOptimal, OutcomeOptimal, OutcomeOptimal,
		OutcomeOutOfDate,
	}
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	for i := 0; i < 5; i++ {
		if err := loop.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if surface.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", surface.rebuilds)
	}
	if surface.presents != 4 {
		t.Errorf("presents = %d, want 4", surface.presents)
	}
	// The fifth iteration used slot 0 and must retry on slot 0.
	if got := loop.FrameIndex(); got != 0 {
		t.Errorf("FrameIndex() after stale acquire = %d, want 0", got)
	}

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("retry frame: %v", err)
	}
	if surface.presents != 5 {
		t.Errorf("presents after retry = %d, want 5", surface.presents)
	}
	if got := loop.FrameIndex(); got != 1 {
		t.Errorf("FrameIndex() after retry = %d, want 1", got)
	}
}

func TestDegradedPresentWithPendingResize(t *testing.T) {
	rec := &frameRecorder{}
	surface := newFakeSurface(rec, 3)
	surface.presentScript = []Outcome{OutcomeSuboptimal}
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	loop.RequestResize()
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("frame: %v", err)
	}

	if surface.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", surface.rebuilds)
	}
	// The frame did render, so the index advances even though presentation
	// was degraded.
	if got := loop.FrameIndex(); got != 1 {
		t.Errorf("FrameIndex() = %d, want 1", got)
	}

	// The resize flag must have been consumed: a clean follow up frame
	// triggers no further rebuild.
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("follow up frame: %v", err)
	}
	if surface.rebuilds != 1 {
		t.Errorf("rebuilds after clean frame = %d, want still 1", surface.rebuilds)
	}
}

func TestOutOfDatePresentRebuildsAndAdvances(t *testing.T) {
	rec := &frameRecorder{}
	surface := newFakeSurface(rec, 3)
	surface.presentScript = []Outcome{OutcomeOutOfDate}
	loop := NewFrameLoop(&fakeSync{rec: rec}, surface, makeSlots(2))

	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if surface.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", surface.rebuilds)
	}
	if got := loop.FrameIndex(); got != 1 {
		t.Errorf("FrameIndex() = %d, want 1", got)
	}
}

func TestFenceWaitErrorSurfacesUnchanged(t *testing.T) {
	rec := &frameRecorder{}
	surface := newFakeSurface(rec, 2)
	sync := &fakeSync{rec: rec, waitErr: ErrSyncTimeout}
	loop := NewFrameLoop(sync, surface, makeSlots(2))

	err := loop.DrawFrame()
	if !errors.Is(err, ErrSyncTimeout) {
		t.Fatalf("DrawFrame() = %v, want ErrSyncTimeout", err)
	}
	if got := loop.FrameIndex(); got != 0 {
		t.Errorf("FrameIndex() after timeout = %d, want 0", got)
	}
	if surface.acquires != 0 {
		t.Errorf("acquires = %d, want 0 (nothing should happen after a failed wait)", surface.acquires)
	}

	// The same frame is retryable once the fence wait succeeds.
	sync.waitErr = nil
	if err := loop.DrawFrame(); err != nil {
		t.Fatalf("retry frame: %v", err)
	}
	if surface.presents != 1 {
		t.Errorf("presents = %d, want 1", surface.presents)
	}
}
