// Package viz renders closed-loop traces in the terminal.
//
// [Model] is a Bubble Tea program that plays a trace back sample by sample,
// charting the set point against the regulated brightness and the
// controller output with asciigraph. [RenderASCII] draws a whole run for
// non-interactive output.
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	R     - Restart from the first sample
//	[ ]   - Scrub back/forward
//	+ -   - Change playback speed
//	T     - Cycle color themes
//	?     - Show help
package viz
