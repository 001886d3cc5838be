package framebuf

import "fmt"

// HandleKind tags the platform a SurfaceHandle belongs to.
type HandleKind uint8

// Supported handle kinds.
const (
	// HandleHeadless carries no native window; used by offscreen presenters.
	HandleHeadless HandleKind = iota
	HandleXlib
	HandleXcb
	HandleWayland
	HandleWin32
	HandleAppKit
	HandleUIKit
	HandleAndroid
	HandleWeb
	// HandleTerminal carries a terminal file descriptor in Window (optional).
	HandleTerminal

	handleKindCount
)

var handleKindNames = [...]string{
	HandleHeadless: "headless",
	HandleXlib:     "xlib",
	HandleXcb:      "xcb",
	HandleWayland:  "wayland",
	HandleWin32:    "win32",
	HandleAppKit:   "appkit",
	HandleUIKit:    "uikit",
	HandleAndroid:  "android",
	HandleWeb:      "web",
	HandleTerminal: "terminal",
}

func (k HandleKind) String() string {
	if k < handleKindCount {
		return handleKindNames[k]
	}
	return fmt.Sprintf("HandleKind(%d)", uint8(k))
}

// Native reports whether the kind refers to a native windowing system,
// which requires a non-zero window handle.
func (k HandleKind) Native() bool {
	return k != HandleHeadless && k != HandleTerminal && k < handleKindCount
}

// SurfaceHandle is an opaque reference to the drawable surface a presenter
// targets. framebuf never dereferences Window or Display; it only forwards
// the handle to the presenter factory.
//
// For Xlib/Xcb/Wayland, Display is the connection and Window the surface.
// For Win32, Window is the HWND and Display the HINSTANCE. Other kinds use
// Window only.
type SurfaceHandle struct {
	Kind    HandleKind
	Window  uintptr
	Display uintptr
}

// Headless returns a handle for presenters that need no window.
func Headless() SurfaceHandle {
	return SurfaceHandle{Kind: HandleHeadless}
}

// Validate checks that the handle is well-formed for its kind.
func (h SurfaceHandle) Validate() error {
	if h.Kind >= handleKindCount {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidHandle, uint8(h.Kind))
	}
	if h.Kind.Native() && h.Window == 0 {
		return fmt.Errorf("%w: %s handle without window", ErrInvalidHandle, h.Kind)
	}
	switch h.Kind {
	case HandleXlib, HandleXcb, HandleWayland:
		if h.Display == 0 {
			return fmt.Errorf("%w: %s handle without display", ErrInvalidHandle, h.Kind)
		}
	}
	return nil
}

func (h SurfaceHandle) String() string {
	if h.Kind.Native() {
		return fmt.Sprintf("%s(window=%#x, display=%#x)", h.Kind, h.Window, h.Display)
	}
	return h.Kind.String()
}
