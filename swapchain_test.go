package vkr

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormatPrefersSRGB(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	if got.Format != vk.FormatB8g8r8a8Srgb || got.ColorSpace != vk.ColorSpaceSrgbNonlinear {
		t.Errorf("chooseSurfaceFormat picked %v/%v, want the preferred BGRA sRGB pair", got.Format, got.ColorSpace)
	}
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	if got.Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("chooseSurfaceFormat picked %v, want the first reported format", got.Format)
	}
}

func TestChoosePresentModePrefersMailbox(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	if got := choosePresentMode(modes); got != vk.PresentModeMailbox {
		t.Errorf("choosePresentMode = %v, want mailbox", got)
	}
}

func TestChoosePresentModeFallsBackToFifo(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifoRelaxed}
	if got := choosePresentMode(modes); got != vk.PresentModeFifo {
		t.Errorf("choosePresentMode = %v, want fifo", got)
	}
}

func TestChooseExtentUsesCurrentWhenFixed(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 1024, Height: 768},
	}

	got := chooseExtent(caps, 800, 600)
	if got.Width != 1024 || got.Height != 768 {
		t.Errorf("chooseExtent = %dx%d, want the platform dictated 1024x768", got.Width, got.Height)
	}
}

func TestChooseExtentClampsWhenFree(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 200, Height: 200},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}

	got := chooseExtent(caps, 800, 600)
	if got.Width != 800 || got.Height != 600 {
		t.Errorf("chooseExtent = %dx%d, want the requested 800x600", got.Width, got.Height)
	}

	got = chooseExtent(caps, 4000, 100)
	if got.Width != 1920 || got.Height != 200 {
		t.Errorf("chooseExtent = %dx%d, want clamped 1920x200", got.Width, got.Height)
	}
}

func TestChooseImageCount(t *testing.T) {
	caps := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}
	if got := chooseImageCount(caps); got != 3 {
		t.Errorf("chooseImageCount = %d, want min+1 = 3", got)
	}

	caps = vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}
	if got := chooseImageCount(caps); got != 3 {
		t.Errorf("chooseImageCount = %d, want clamped to max = 3", got)
	}

	// A max of zero means the platform imposes no upper bound.
	caps = vk.SurfaceCapabilities{MinImageCount: 4, MaxImageCount: 0}
	if got := chooseImageCount(caps); got != 5 {
		t.Errorf("chooseImageCount = %d, want unbounded min+1 = 5", got)
	}
}

// Selection must be a pure function of the reported capabilities: rebuilding
// with unchanged inputs yields an observably identical configuration.
func TestSelectionIsDeterministic(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	caps := vk.SurfaceCapabilities{
		MinImageCount: 2,
		MaxImageCount: 8,
		CurrentExtent: vk.Extent2D{Width: 800, Height: 600},
	}

	first := chooseSurfaceFormat(formats)
	if again := chooseSurfaceFormat(formats); again != first {
		t.Errorf("format selection not stable: %v then %v", first, again)
	}
	if a, b := choosePresentMode(modes), choosePresentMode(modes); a != b {
		t.Errorf("present mode selection not stable: %v then %v", a, b)
	}
	if a, b := chooseImageCount(caps), chooseImageCount(caps); a != b {
		t.Errorf("image count selection not stable: %d then %d", a, b)
	}
	if a, b := chooseExtent(caps, 800, 600), chooseExtent(caps, 800, 600); a != b {
		t.Errorf("extent selection not stable: %v then %v", a, b)
	}
}
