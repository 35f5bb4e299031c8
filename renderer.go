package vkr

import (
	"fmt"
	"time"

	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// RendererConfig is the construction time configuration for a Renderer.
// Zero values get sensible defaults from NewRenderer.
type RendererConfig struct {
	AppName    string
	AppVersion Version

	// EnableValidation turns on the Khronos validation layer and routes its
	// output through the standard logger. Startup fails if the layer is
	// requested but not installed.
	EnableValidation bool

	// FramesInFlight is the number of frame slots, i.e. how many frames may
	// be submitted before the host blocks. Defaults to 2.
	FramesInFlight int

	// SyncTimeout bounds every fence wait in the frame loop. Zero waits
	// forever.
	SyncTimeout time.Duration

	VertexShaderPath   string
	FragmentShaderPath string

	ClearColor [4]float32
}

// Renderer wires the window, device and frame loop together. Usage is
// SetWindow, Init, then DrawFrame once per iteration of the event loop, and
// finally Destroy.
type Renderer struct {
	Config RendererConfig

	Window    *glfw.Window
	Instance  *Instance
	VKSurface vk.Surface

	PhysicalDevice *PhysicalDevice
	Device         *Device
	GraphicsQueue  *Queue
	PresentQueue   *Queue
	CommandPool    *CommandPool

	Slots   []*FrameSlot
	Surface *SurfaceState
	Loop    *FrameLoop
}

func NewRenderer(config RendererConfig) *Renderer {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 2
	}
	if config.VertexShaderPath == "" {
		config.VertexShaderPath = "shaders/vert.spv"
	}
	if config.FragmentShaderPath == "" {
		config.FragmentShaderPath = "shaders/frag.spv"
	}
	if config.ClearColor == [4]float32{} {
		config.ClearColor = [4]float32{0.52, 0.63, 0.95, 1.0} // pastel blue
	}
	return &Renderer{Config: config}
}

// SetWindow attaches the GLFW window the renderer will present to. Must be
// called before Init.
func (r *Renderer) SetWindow(window *glfw.Window) {
	r.Window = window
}

// Init performs the whole one shot setup sequence: instance, surface,
// device selection, logical device and queues, command pool, frame slots,
// the first surface state build, and the frame loop. Every failure is fatal
// and reported to the caller.
func (r *Renderer) Init() error {
	if r.Window == nil {
		return fmt.Errorf("a window must be set before initialization")
	}

	app := &AppInfo{
		Name:       r.Config.AppName,
		EngineName: "No Engine",
		Version:    r.Config.AppVersion,
		APIVersion: Version{1, 0, 0},
	}

	for _, ext := range r.Window.GetRequiredInstanceExtensions() {
		app.EnableExtension(ext)
	}
	if r.Config.EnableValidation {
		if err := app.EnableValidation(); err != nil {
			return err
		}
	}

	var err error
	r.Instance, err = app.CreateInstance()
	if err != nil {
		return fmt.Errorf("error creating instance: %w", err)
	}
	if r.Config.EnableValidation {
		if err := r.Instance.UseDefaultDebugCallback(); err != nil {
			return fmt.Errorf("error installing debug callback: %w", err)
		}
	}

	surface, err := r.Window.CreateWindowSurface(r.Instance.VKInstance, nil)
	if err != nil {
		return fmt.Errorf("error creating window surface: %w", err)
	}
	r.VKSurface = vk.SurfaceFromPointer(surface)

	devices, err := r.Instance.PhysicalDevices()
	if err != nil {
		return fmt.Errorf("error enumerating devices: %w", err)
	}
	r.PhysicalDevice, err = PickPhysicalDevice(devices, r.VKSurface)
	if err != nil {
		return err
	}

	families, err := r.PhysicalDevice.QueueFamilies()
	if err != nil {
		return fmt.Errorf("unable to load device queue families: %w", err)
	}

	var graphicsFamily, presentFamily *QueueFamily
	if both := families.FilterGraphicsAndPresent(r.VKSurface); len(both) > 0 {
		graphicsFamily = both[0]
		presentFamily = both[0]
	} else {
		graphics := families.FilterGraphics()
		present := families.FilterPresent(r.VKSurface)
		if len(graphics) == 0 || len(present) == 0 {
			return fmt.Errorf("no graphics and present capable queues found on device %s", r.PhysicalDevice)
		}
		graphicsFamily = graphics[0]
		presentFamily = present[0]
	}

	options := &CreateDeviceOptions{
		EnabledExtensions: []string{SwapchainExtension},
	}
	if r.Config.EnableValidation {
		options.EnabledLayers = []string{ValidationLayer}
	}
	r.Device, err = r.PhysicalDevice.CreateLogicalDevice(QueueFamilySlice{graphicsFamily, presentFamily}, options)
	if err != nil {
		return err
	}

	r.GraphicsQueue = r.Device.GetQueue(graphicsFamily)
	r.PresentQueue = r.Device.GetQueue(presentFamily)

	r.CommandPool, err = r.Device.CreateCommandPool(graphicsFamily)
	if err != nil {
		return fmt.Errorf("error creating command pool: %w", err)
	}

	r.Slots, err = r.Device.CreateFrameSlots(r.Config.FramesInFlight)
	if err != nil {
		return fmt.Errorf("error creating frame slots: %w", err)
	}

	r.Surface = &SurfaceState{
		Device:             r.Device,
		VKSurface:          r.VKSurface,
		GraphicsQueue:      r.GraphicsQueue,
		PresentQueue:       r.PresentQueue,
		CommandPool:        r.CommandPool,
		VertexShaderPath:   r.Config.VertexShaderPath,
		FragmentShaderPath: r.Config.FragmentShaderPath,
		DrawableSize:       r.Window.GetFramebufferSize,
		WaitEvents:         glfw.WaitEvents,
		ClearColor:         r.Config.ClearColor,
	}
	if err := r.Surface.Build(); err != nil {
		return err
	}

	r.Loop = NewFrameLoop(r.Device, r.Surface, r.Slots)
	r.Loop.SyncTimeout = r.Config.SyncTimeout

	r.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.Loop.RequestResize()
	})

	return nil
}

// DrawFrame renders and presents one frame.
func (r *Renderer) DrawFrame() error {
	return r.Loop.DrawFrame()
}

// Destroy tears everything down in reverse creation order, after waiting
// for the device to finish outstanding work.
func (r *Renderer) Destroy() {
	if r.Device != nil {
		r.Device.WaitIdle()

		if r.Surface != nil {
			r.Surface.Destroy()
		}
		r.Device.DestroyFrameSlots(r.Slots)
		if r.CommandPool != nil {
			r.CommandPool.Destroy()
		}
		r.Device.Destroy()
	}
	if r.Instance != nil {
		if r.VKSurface != vk.NullSurface {
			vk.DestroySurface(r.Instance.VKInstance, r.VKSurface, nil)
		}
		r.Instance.Destroy()
	}
}
