package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainExtension must be supported by a device before it can present to
// a window surface.
const SwapchainExtension = "VK_KHR_swapchain"

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// SurfaceSupport is everything the platform reports about presenting to a
// particular surface. All nested structures are dereferenced here, at query
// time, so callers can read fields directly.
type SurfaceSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether the surface can be presented to at all.
func (s *SurfaceSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

// QuerySurfaceSupport fetches the capabilities, formats and present modes
// the device supports for the given surface.
func (p *PhysicalDevice) QuerySurfaceSupport(surface vk.Surface) (*SurfaceSupport, error) {
	var support SurfaceSupport

	err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &support.Capabilities))
	if err != nil {
		return nil, fmt.Errorf("error getting surface capabilities: %w", err)
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &formatCount, nil))
	if err != nil {
		return nil, fmt.Errorf("error getting surface formats: %w", err)
	}
	support.Formats = make([]vk.SurfaceFormat, formatCount)
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &formatCount, support.Formats))
	if err != nil {
		return nil, fmt.Errorf("error getting surface formats: %w", err)
	}
	for i := range support.Formats {
		support.Formats[i].Deref()
	}

	var modeCount uint32
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &modeCount, nil))
	if err != nil {
		return nil, fmt.Errorf("error getting surface present modes: %w", err)
	}
	support.PresentModes = make([]vk.PresentMode, modeCount)
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &modeCount, support.PresentModes))
	if err != nil {
		return nil, fmt.Errorf("error getting surface present modes: %w", err)
	}

	return &support, nil
}

// QueueFamilies returns the queue families this device exposes
func (p *PhysicalDevice) QueueFamilies() (QueueFamilySlice, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, nil)
	if count == 0 {
		return nil, nil
	}

	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, families)

	ret := make(QueueFamilySlice, count)
	for i, family := range families {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: family}
		ret[i].VKQueueFamilyProperties.Deref()
	}
	return ret, nil
}

// SupportsExtensions reports whether the device supports every named
// extension.
func (p *PhysicalDevice) SupportsExtensions(names ...string) (bool, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return false, err
	}
	exts := make([]vk.ExtensionProperties, count)
	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, exts))
	if err != nil {
		return false, err
	}

	available := make(map[string]bool, count)
	for _, ext := range exts {
		ext.Deref()
		available[vk.ToString(ext.ExtensionName[:])] = true
	}
	for _, name := range names {
		if !available[name] {
			return false, nil
		}
	}
	return true, nil
}

// Suitable reports whether this device can render to the surface at all:
// it needs graphics and present queue families, the swapchain extension,
// and at least one surface format and present mode.
func (p *PhysicalDevice) Suitable(surface vk.Surface) (bool, error) {
	families, err := p.QueueFamilies()
	if err != nil {
		return false, err
	}
	if len(families.FilterGraphics()) == 0 || len(families.FilterPresent(surface)) == 0 {
		return false, nil
	}

	ok, err := p.SupportsExtensions(SwapchainExtension)
	if err != nil || !ok {
		return false, err
	}

	support, err := p.QuerySurfaceSupport(surface)
	if err != nil {
		return false, err
	}
	return support.Adequate(), nil
}

// Score rates how desirable the device is for rendering to the surface.
// Zero means unsuitable. Discrete GPUs win over integrated ones, and larger
// maximum texture sizes break ties.
func (p *PhysicalDevice) Score(surface vk.Surface) (uint32, error) {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &features)
	features.Deref()

	suitable, err := p.Suitable(surface)
	if err != nil {
		return 0, err
	}
	if features.GeometryShader == vk.False || !suitable {
		return 0, nil
	}

	var score uint32
	if p.VKPhysicalDeviceProperties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
		score += 1000
	}

	p.VKPhysicalDeviceProperties.Limits.Deref()
	score += p.VKPhysicalDeviceProperties.Limits.MaxImageDimension2D

	return score, nil
}

// PickPhysicalDevice selects the highest scoring device able to render to
// the surface.
func PickPhysicalDevice(devices []*PhysicalDevice, surface vk.Surface) (*PhysicalDevice, error) {
	var best *PhysicalDevice
	var bestScore uint32

	for _, device := range devices {
		score, err := device.Score(surface)
		if err != nil {
			return nil, fmt.Errorf("error rating device %s: %w", device, err)
		}
		if score > bestScore {
			best = device
			bestScore = score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no suitable GPU found among %d device(s)", len(devices))
	}
	return best, nil
}

type QueueFamilySlice []*QueueFamily

func (ql QueueFamilySlice) Filter(f func(q *QueueFamily) bool) QueueFamilySlice {
	ret := make(QueueFamilySlice, 0)
	for _, q := range ql {
		if f(q) {
			ret = append(ret, q)
		}
	}
	return ret
}

func (ql QueueFamilySlice) FilterGraphics() QueueFamilySlice {
	return ql.Filter(func(q *QueueFamily) bool {
		return q.IsGraphics()
	})
}

func (ql QueueFamilySlice) FilterPresent(surface vk.Surface) QueueFamilySlice {
	return ql.Filter(func(q *QueueFamily) bool {
		return q.SupportsPresent(surface)
	})
}

func (ql QueueFamilySlice) FilterGraphicsAndPresent(surface vk.Surface) QueueFamilySlice {
	return ql.Filter(func(q *QueueFamily) bool {
		return q.IsGraphics() && q.SupportsPresent(surface)
	})
}

type QueueFamily struct {
	Index                   int
	PhysicalDevice          *PhysicalDevice
	VKQueueFamilyProperties vk.QueueFamilyProperties
}

func (q *QueueFamily) IsGraphics() bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
}

func (q *QueueFamily) SupportsPresent(surface vk.Surface) bool {
	var supportsPresent vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(q.PhysicalDevice.VKPhysicalDevice, uint32(q.Index), surface, &supportsPresent)
	return supportsPresent == vk.True
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Graphics: %v }", q.Index, q.IsGraphics())
}
