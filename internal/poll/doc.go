// Package poll reads one IO controller channel repeatedly, for bench work
// on a board outside the production sequence.
//
// A Poller produces Samples; they are either printed as lines (RunPlain)
// or shown in a bubbletea status view (RunView) that also renders the log
// stream.
package poll
