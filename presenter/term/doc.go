// Package term provides a framebuf presenter that draws frames into a
// terminal using tcell.
//
// Each terminal cell shows two pixels stacked vertically with the upper
// half block character, the top pixel as foreground and the bottom as
// background, in 24-bit colour. Importing the package registers the "term"
// backend, available when standard output is a terminal.
package term
