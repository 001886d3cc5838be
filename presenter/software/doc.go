// Package software provides a framebuf presenter that renders into an
// in-memory image.
//
// Importing the package registers the "software" backend:
//
//	import _ "github.com/gogpu/framebuf/presenter/software"
//
// Frames are converted from the World's packed pixel format to RGBA and
// scaled onto a surface-sized *image.RGBA with golang.org/x/image/draw.
// Use Snapshot or Config.OnRender to consume the result.
package software
