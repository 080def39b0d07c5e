// Package domain contains the core entities of the conversion service.
//
// The central entity is Task, which represents one URL-to-audio conversion
// request and its lifecycle state. Tasks move through a small state machine
// (queued -> processing -> finished|error) and the package enforces that no
// transition ever leaves a terminal state.
package domain
