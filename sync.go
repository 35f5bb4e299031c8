package vkr

import (
	"errors"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// ErrSyncTimeout is returned when a fence wait expires before the device
// signals completion. The frame may be retried; the slot has not been
// touched.
var ErrSyncTimeout = errors.New("vkr: timed out waiting for frame fence")

// FrameSlot bundles the synchronization primitives dedicated to one of the
// fixed number of frames that may be in flight at once. ImageAvailable is
// signaled when the platform hands over a swapchain image, RenderFinished
// when this slot's draw commands complete on the device, and InFlight is the
// host observable marker for the slot's most recent submission.
//
// At most one submission per slot may be unresolved: the host must wait on
// InFlight before reusing the slot's semaphores.
type FrameSlot struct {
	Index          int
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       vk.Fence
}

// CreateFrameSlots builds the fixed table of per in-flight-frame
// synchronization primitives. Fences are created already signaled so the
// first wait on a fresh slot does not stall.
func (d *Device) CreateFrameSlots(count int) ([]*FrameSlot, error) {
	slots := make([]*FrameSlot, 0, count)

	fail := func(err error) ([]*FrameSlot, error) {
		d.DestroyFrameSlots(slots)
		return nil, err
	}

	for i := 0; i < count; i++ {
		slot := &FrameSlot{Index: i}

		var err error
		slot.ImageAvailable, err = d.createSemaphore()
		if err != nil {
			return fail(err)
		}
		slot.RenderFinished, err = d.createSemaphore()
		if err != nil {
			vk.DestroySemaphore(d.VKDevice, slot.ImageAvailable, nil)
			return fail(err)
		}
		slot.InFlight, err = d.createFence(true)
		if err != nil {
			vk.DestroySemaphore(d.VKDevice, slot.ImageAvailable, nil)
			vk.DestroySemaphore(d.VKDevice, slot.RenderFinished, nil)
			return fail(err)
		}

		slots = append(slots, slot)
	}
	return slots, nil
}

// DestroyFrameSlots destroys every primitive in the table. Call exactly once,
// with the device idle.
func (d *Device) DestroyFrameSlots(slots []*FrameSlot) {
	for _, slot := range slots {
		vk.DestroySemaphore(d.VKDevice, slot.ImageAvailable, nil)
		vk.DestroySemaphore(d.VKDevice, slot.RenderFinished, nil)
		vk.DestroyFence(d.VKDevice, slot.InFlight, nil)
	}
}

// WaitSlot blocks until the slot's most recent submission has completed.
// A timeout of zero waits forever; an expired timeout is reported as
// ErrSyncTimeout rather than hanging the process.
func (d *Device) WaitSlot(s *FrameSlot, timeout time.Duration) error {
	t := uint64(vk.MaxUint64)
	if timeout > 0 {
		t = uint64(timeout.Nanoseconds())
	}
	res := vk.WaitForFences(d.VKDevice, 1, []vk.Fence{s.InFlight}, vk.True, t)
	if res == vk.Timeout {
		return ErrSyncTimeout
	}
	return vk.Error(res)
}

// ResetSlot clears the slot's fence to the unsignaled state. Must happen
// exactly once, immediately before the submission that will signal it.
func (d *Device) ResetSlot(s *FrameSlot) error {
	return vk.Error(vk.ResetFences(d.VKDevice, 1, []vk.Fence{s.InFlight}))
}

func (d *Device) createSemaphore() (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var sema vk.Semaphore
	err := vk.Error(vk.CreateSemaphore(d.VKDevice, &semaphoreCreateInfo, nil, &sema))
	return sema, err
}

func (d *Device) createFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	return fence, err
}
