package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

type Swapchain struct {
	Device      *Device
	VKSwapchain vk.Swapchain
	Format      vk.Format
	ColorSpace  vk.ColorSpace
	Extent      vk.Extent2D
}

func (s *Swapchain) Destroy() {
	vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
}

// GetImages returns the handles of the images the platform actually created,
// which may be more than the minimum requested.
func (s *Swapchain) GetImages() ([]vk.Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil))
	if err != nil {
		return nil, err
	}

	images := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, images))
	if err != nil {
		return nil, err
	}
	return images, nil
}

// chooseSurfaceFormat prefers 32 bit BGRA with the sRGB color space, and
// falls back to whatever the platform lists first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox (low latency, no blocking) and falls
// back to FIFO, the one mode every implementation must support.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent picks the swapchain size. A current extent width of MaxUint32
// is the platform saying the window manager lets us choose; otherwise the
// reported extent is used verbatim.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image over the supported minimum so the
// driver's internal bookkeeping never leaves us waiting on it, clamped to
// the maximum. A maximum of zero means unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

type CreateSwapchainOptions struct {
	// OldSwapchain, if set, lets the driver recycle resources from the
	// swapchain being replaced.
	OldSwapchain *Swapchain

	// DrawableWidth/Height are the window's framebuffer size in pixels,
	// used only when the platform leaves the extent up to us.
	DrawableWidth  uint32
	DrawableHeight uint32

	GraphicsFamily int
	PresentFamily  int
}

// CreateSwapchain creates a swapchain for the surface using the selection
// rules above against the given surface support.
func (d *Device) CreateSwapchain(surface vk.Surface, support *SurfaceSupport, options CreateSwapchainOptions) (*Swapchain, error) {
	format := chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes)
	extent := chooseExtent(support.Capabilities, options.DrawableWidth, options.DrawableHeight)
	imageCount := chooseImageCount(support.Capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if options.OldSwapchain != nil {
		createInfo.OldSwapchain = options.OldSwapchain.VKSwapchain
	}

	if options.GraphicsFamily != options.PresentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(options.GraphicsFamily),
			uint32(options.PresentFamily),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	err := vk.Error(vk.CreateSwapchain(d.VKDevice, &createInfo, nil, &swapchain))
	if err != nil {
		return nil, err
	}

	return &Swapchain{
		Device:      d,
		VKSwapchain: swapchain,
		Format:      format.Format,
		ColorSpace:  format.ColorSpace,
		Extent:      extent,
	}, nil
}
