// Package extract pulls a best-effort opportunity name and application
// deadline out of rendered page text. Every function is pure: no I/O, no
// hidden state, and the current time is always passed in by the caller.
package extract
