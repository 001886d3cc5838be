// Package gpu provides a framebuf presenter that uploads frames into a
// GPU texture through the wgpu HAL.
//
// Importing the package registers the "gpu" backend. It is available when
// a Vulkan HAL backend is registered; hosts that already own a device pass
// it through framebuf.WithDeviceProvider or Config.Device instead.
//
// Only row bands containing damaged tiles are written to the texture on
// each Render. The package also compiles a fullscreen blit shader with
// naga that hosts can bind in their own render pass.
package gpu
