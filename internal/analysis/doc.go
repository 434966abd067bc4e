// Package analysis looks for sustained oscillation in closed-loop signals.
//
// A badly tuned loop, or one whose dead time is large against its time
// constant, settles into a limit cycle instead of the set point. The
// spectrum of the control error over the tail of a run exposes it as a
// single dominant peak.
package analysis
