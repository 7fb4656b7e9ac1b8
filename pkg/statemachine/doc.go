// Package statemachine describes finite lifecycles as transition tables.
//
// A Table holds no current state: callers pass the state they loaded and get
// back the state they may move to, then persist it with whatever atomic
// write their store offers. The same table is shared by every record and
// every goroutine.
//
// # Usage
//
//	var lifecycle = statemachine.NewBuilder[Status, Event]().
//		Allow(StatusPending, EventAccept, StatusAccepted).
//		Allow(StatusPending, EventRevoke, StatusRevoked).
//		Allow(StatusPending, EventExpire, StatusExpired).
//		MustBuild()
//
//	next, err := lifecycle.Next(ctx, inv.Status, EventAccept, nil)
//	if err != nil {
//		return err
//	}
//
// Edges may carry Guards. Several edges for the same state and event are
// tried in the order they were added, and the first whose guards all pass
// wins.
//
// # Errors
//
// Next returns *ErrNoTransitionAvailable when no edge leaves the state for
// the event and *ErrTransitionRejected when every candidate was refused by
// a guard. IsNoTransitionAvailableError and IsTransitionRejectedError test
// for them through wrapping.
package statemachine
