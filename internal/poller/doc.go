// Package poller implements the Change Poller component.
//
// The Change Poller:
//   - Saves a change-log checkpoint on startup (Prime)
//   - Every interval, compares the current checkpoint with the saved one
//   - On a difference, walks the change log from the saved checkpoint
//   - Notifies the handler when the watched resource is among the changes
//   - Advances the saved checkpoint only after a fully successful check
//
// Ticks that arrive while a check is running are dropped, never queued.
package poller
