// Package view implements the session controllers (dashboard, registration
// form, SQL console) and their synchronization protocol.
//
// Each controller owns in-memory state mirrored from the store:
//
//	Uninitialized -> Loading -> Ready
//
// with Ready re-entered on every relevant external notification.
//
// # Protocol
//
//   - On Mount: hydrate local state from the store, subscribe to the bus,
//     transition to Ready.
//   - On a local mutating action: write through the store, update local
//     state optimistically, then publish a notification describing the
//     change. Publishes always happen outside the controller lock so a
//     controller may receive its own notification reentrantly.
//   - On a relevant notification: re-run the read path to refresh local
//     state. Irrelevant kinds are ignored.
//   - On Unmount: flush pending autosaves and cancel the subscription.
//     Cancellation is mandatory; a leaked handler outlives the view.
//
// # Failure Semantics
//
// Store failures surface as returned errors or logged warnings; the previous
// in-memory state is retained and the controller stays Ready. Nothing in
// this package escalates to a crash.
package view
