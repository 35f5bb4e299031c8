/*
Package vkr is a small Vulkan renderer, written while learning the Vulkan API.
It opens a GLFW window, builds the fixed-function graphics pipeline and draws
a single hard coded triangle, recreating the swapchain and everything derived
from it whenever the window makes the current configuration unusable.

It is deliberately not an engine. There is no scene graph, no asset pipeline
and no resource abstraction beyond what is needed to get pixels on screen.
What it does try to get right is the part of a Vulkan program that has real
invariants: the frame loop. A fixed number of frame slots (a semaphore pair
plus a fence each) bound how many frames may be in flight, swapchain images
carry a back reference to the slot that last wrote them so that differently
paced slots never render into the same image concurrently, and both the
acquire and the present call route surface invalidation through a single
rebuild path.

The package is split along those lines. FrameSlot and the fence helpers live
in sync.go, SurfaceState owns the swapchain and every resource derived from
it, and FrameLoop drives acquire, submit and present over the FrameSync and
Surface interfaces so the state machine can be exercised without a GPU.
Renderer wires the whole thing to a GLFW window; see examples/triangle for
usage.

Shaders are consumed as precompiled SPIR-V blobs; see the shaders directory
for the sources and how to compile them.
*/
package vkr
