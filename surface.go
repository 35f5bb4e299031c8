package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ImageRecord bundles the per swapchain image resources that are created and
// destroyed together every time the swapchain is rebuilt.
type ImageRecord struct {
	Image       vk.Image
	View        vk.ImageView
	Framebuffer vk.Framebuffer
	Command     *CommandBuffer

	// owner is the frame slot whose fence covers the most recent submission
	// against this image, or nil. The record does not own the fence; it is a
	// back reference the frame loop uses to wait out image reuse between
	// differently paced slots.
	owner *FrameSlot
}

// SurfaceState owns the swapchain and every resource derived from it, and
// rebuilds the whole batch when the platform reports the current one no
// longer matches the window. The exported collaborator fields must be set
// before the first Build and are not touched afterwards.
type SurfaceState struct {
	Device        *Device
	VKSurface     vk.Surface
	GraphicsQueue *Queue
	PresentQueue  *Queue
	CommandPool   *CommandPool

	VertexShaderPath   string
	FragmentShaderPath string

	// DrawableSize reports the window's current framebuffer size in pixels.
	DrawableSize func() (int, int)
	// WaitEvents blocks until the platform delivers an event. Rebuild spins
	// on it while the window is minimized.
	WaitEvents func()

	ClearColor [4]float32

	Swapchain      *Swapchain
	Images         []*ImageRecord
	RenderPass     vk.RenderPass
	PipelineLayout vk.PipelineLayout
	Pipeline       vk.Pipeline
}

// NumImages returns how many presentable images the current swapchain has.
func (s *SurfaceState) NumImages() int {
	return len(s.Images)
}

// Record returns the resource record for a presentable image.
func (s *SurfaceState) Record(image int) *ImageRecord {
	return s.Images[image]
}

// Build creates the swapchain from the latest surface capabilities and
// window size, then every resource hanging off it: image views, the render
// pass, the pipeline, framebuffers and one pre-recorded command buffer per
// image. Any failure here is fatal to the frame loop; there is no partial
// state to recover to.
func (s *SurfaceState) Build() error {
	support, err := s.Device.PhysicalDevice.QuerySurfaceSupport(s.VKSurface)
	if err != nil {
		return err
	}

	width, height := s.DrawableSize()

	old := s.Swapchain
	swapchain, err := s.Device.CreateSwapchain(s.VKSurface, support, CreateSwapchainOptions{
		OldSwapchain:   old,
		DrawableWidth:  uint32(width),
		DrawableHeight: uint32(height),
		GraphicsFamily: s.GraphicsQueue.QueueFamily.Index,
		PresentFamily:  s.PresentQueue.QueueFamily.Index,
	})
	if err != nil {
		return fmt.Errorf("error creating swapchain: %w", err)
	}
	s.Swapchain = swapchain
	if old != nil {
		old.Destroy()
	}

	images, err := swapchain.GetImages()
	if err != nil {
		return fmt.Errorf("error getting swapchain images: %w", err)
	}

	s.RenderPass, err = s.Device.CreatePresentRenderPass(swapchain.Format)
	if err != nil {
		return fmt.Errorf("error creating render pass: %w", err)
	}

	s.PipelineLayout, err = s.Device.CreateEmptyPipelineLayout()
	if err != nil {
		return fmt.Errorf("error creating pipeline layout: %w", err)
	}

	config := s.Device.CreatePipelineConfig()
	defer config.Destroy()
	if err := config.AddShaderStageFromFile(s.VertexShaderPath, "main", vk.ShaderStageVertexBit); err != nil {
		return err
	}
	if err := config.AddShaderStageFromFile(s.FragmentShaderPath, "main", vk.ShaderStageFragmentBit); err != nil {
		return err
	}
	s.Pipeline, err = config.Build(swapchain.Extent, s.PipelineLayout, s.RenderPass)
	if err != nil {
		return err
	}

	commands, err := s.CommandPool.AllocateBuffers(len(images))
	if err != nil {
		return fmt.Errorf("error allocating command buffers: %w", err)
	}

	s.Images = make([]*ImageRecord, len(images))
	for i, image := range images {
		rec := &ImageRecord{Image: image, Command: commands[i]}

		rec.View, err = s.createImageView(image, swapchain.Format)
		if err != nil {
			return fmt.Errorf("error creating image view: %w", err)
		}

		rec.Framebuffer, err = s.createFramebuffer(rec.View, swapchain.Extent)
		if err != nil {
			return fmt.Errorf("error creating framebuffer: %w", err)
		}

		if err := s.recordCommands(rec, swapchain.Extent); err != nil {
			return fmt.Errorf("error recording command buffer: %w", err)
		}

		s.Images[i] = rec
	}

	return nil
}

// destroyDerived tears down everything hanging off the swapchain, in
// reverse dependency order. The device must be idle. The swapchain itself is
// left for Build to destroy once a replacement exists, so the driver can
// recycle it.
func (s *SurfaceState) destroyDerived() {
	commands := make([]*CommandBuffer, 0, len(s.Images))
	for _, rec := range s.Images {
		commands = append(commands, rec.Command)
		vk.DestroyFramebuffer(s.Device.VKDevice, rec.Framebuffer, nil)
	}
	if len(commands) > 0 {
		s.CommandPool.FreeBuffers(commands)
	}

	vk.DestroyPipeline(s.Device.VKDevice, s.Pipeline, nil)
	vk.DestroyPipelineLayout(s.Device.VKDevice, s.PipelineLayout, nil)
	vk.DestroyRenderPass(s.Device.VKDevice, s.RenderPass, nil)

	for _, rec := range s.Images {
		vk.DestroyImageView(s.Device.VKDevice, rec.View, nil)
	}
	s.Images = nil
}

// Destroy releases everything, swapchain included. Call once, at teardown,
// with the device idle.
func (s *SurfaceState) Destroy() {
	s.destroyDerived()
	if s.Swapchain != nil {
		s.Swapchain.Destroy()
		s.Swapchain = nil
	}
}

// Rebuild replaces the whole batch after the surface has been invalidated.
// It waits for the device to go idle first so nothing in flight still
// references the resources being destroyed, and it refuses to build a zero
// sized swapchain: while the window is minimized it blocks on platform
// events until a usable size comes back.
func (s *SurfaceState) Rebuild() error {
	s.waitDrawable()

	s.Device.WaitIdle()
	s.destroyDerived()

	return s.Build()
}

// waitDrawable blocks until the window reports a non zero drawable size.
func (s *SurfaceState) waitDrawable() (int, int) {
	width, height := s.DrawableSize()
	for width == 0 || height == 0 {
		s.WaitEvents()
		width, height = s.DrawableSize()
	}
	return width, height
}

// Acquire asks the platform for the next presentable image, signaling the
// slot's ImageAvailable semaphore when the image is ready. The raw result is
// mapped to an Outcome so the frame loop never sees platform codes.
func (s *SurfaceState) Acquire(slot *FrameSlot) (int, Outcome, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(s.Device.VKDevice, s.Swapchain.VKSwapchain,
		vk.MaxUint64, slot.ImageAvailable, vk.NullFence, &imageIndex)
	outcome, err := mapOutcome(res)
	return int(imageIndex), outcome, err
}

// Submit sends the image's pre-recorded commands to the graphics queue,
// gated on the slot's ImageAvailable semaphore at the color output stage and
// signaling RenderFinished plus the slot's fence on completion.
func (s *SurfaceState) Submit(rec *ImageRecord, slot *FrameSlot) error {
	return s.GraphicsQueue.Submit(rec.Command,
		slot.ImageAvailable, slot.RenderFinished,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		slot.InFlight)
}

// Present hands the rendered image back to the platform, gated on the
// slot's RenderFinished semaphore.
func (s *SurfaceState) Present(image int, slot *FrameSlot) (Outcome, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Swapchain.VKSwapchain},
		PImageIndices:      []uint32{uint32(image)},
	}

	res := vk.QueuePresent(s.PresentQueue.VKQueue, &presentInfo)
	return mapOutcome(res)
}

// mapOutcome lifts a raw acquire/present result into the frame loop's
// categorical outcomes. Anything that is neither success, suboptimal nor
// out-of-date is a hard error.
func mapOutcome(res vk.Result) (Outcome, error) {
	switch res {
	case vk.Success:
		return OutcomeOptimal, nil
	case vk.Suboptimal:
		return OutcomeSuboptimal, nil
	case vk.ErrorOutOfDate:
		return OutcomeOutOfDate, nil
	default:
		return OutcomeOptimal, vk.Error(res)
	}
}

func (s *SurfaceState) createImageView(image vk.Image, format vk.Format) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(s.Device.VKDevice, &createInfo, nil, &view))
	return view, err
}

func (s *SurfaceState) createFramebuffer(view vk.ImageView, extent vk.Extent2D) (vk.Framebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      s.RenderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(s.Device.VKDevice, &createInfo, nil, &framebuffer))
	return framebuffer, err
}

// recordCommands records the fixed triangle draw for one image: begin the
// render pass with the clear color, bind the pipeline, draw three vertices.
func (s *SurfaceState) recordCommands(rec *ImageRecord, extent vk.Extent2D) error {
	if err := rec.Command.Begin(); err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(s.ClearColor[:])

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  s.RenderPass,
		Framebuffer: rec.Framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(rec.Command.VK(), &renderPassBeginInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(rec.Command.VK(), vk.PipelineBindPointGraphics, s.Pipeline)
	vk.CmdDraw(rec.Command.VK(), 3, 1, 0, 0)
	vk.CmdEndRenderPass(rec.Command.VK())

	return rec.Command.End()
}
