/*
Package transition animates numeric values from a start to a target over time.

An Engine keeps at most one ticket per key. Animating a key that is already in
flight supersedes the old ticket: its remaining steps and its completion callback
are dropped, so a stale animation never resurrects an old target.

The Engine does not own a goroutine. Run drives it from a ticker; tests call
Advance directly to step time deterministically.
*/
package transition
