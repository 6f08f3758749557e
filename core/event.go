// Package core provides the fundamental building blocks of the sqltx library.
// This file defines lifecycle events emitted after transaction operations
// complete successfully.
package core

import "sync"

// Event represents a lifecycle event emitted by the transaction orchestrator.
//
// Events fire after an operation's scope has committed. They allow users to
// register handlers that observe changes in the persistence layer, for
// example to invalidate caches or publish notifications.
type Event string

const (
	// EventInsert is emitted after InsertNew or InsertExisting commits.
	EventInsert Event = "insert"
	// EventUpdate is emitted after Update commits.
	EventUpdate Event = "update"
	// EventDelete is emitted after Delete commits.
	EventDelete Event = "delete"
	// EventSelect is emitted after ContextSelect completes.
	EventSelect Event = "select"
)

// EventHandler defines the callback signature for event listeners.
// The payload is always an OperationPayload.
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	On(core.EventInsert, func(payload any) {
//	    if p, ok := payload.(core.OperationPayload); ok {
//	        log.Printf("inserted: %s", p.Transaction.Name())
//	    }
//	})
func On(event Event, handler EventHandler) {
	globalDispatcher.mutex.Lock()
	defer globalDispatcher.mutex.Unlock()
	globalDispatcher.handlerList[event] = append(globalDispatcher.handlerList[event], handler)
}

// Emit triggers all registered handlers for the given Event.
//
// Handlers are executed asynchronously in separate goroutines.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if hs, ok := globalDispatcher.handlerList[event]; ok {
		for _, h := range hs {
			go h(payload)
		}
	}
}

// OperationPayload is passed to event handlers. It carries the transaction
// that completed the operation and the context the operation ran with. The
// context is a snapshot; mutating it has no effect on the transaction.
type OperationPayload struct {
	Transaction *Transaction
	Context     *Context
}
