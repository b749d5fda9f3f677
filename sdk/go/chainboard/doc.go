// Package chainboard embeds the operator console's read-only board
// client and its friction gate in other Go programs. The client can only
// issue GET requests; no code path through this package can mutate
// governance state. Guard carries the console's dwell-then-confirm
// semantics for hosts that render their own controls.
//
// Usage:
//
//	cb, err := chainboard.New(chainboard.WithBaseURL("http://oc.internal:8600"))
//	board, err := cb.Board(ctx)
//
//	guard := chainboard.NewGuard(chainboard.GuardConfig{
//	    Tier:           chainboard.TierLaw,
//	    RequireConfirm: true,
//	    Action:         haltTrading,
//	})
//	defer guard.Close()
//	guard.Bind(visibility) // <-chan bool from the host UI
//	if res, err := guard.Press(ctx); res == chainboard.PressExecuted { ... }
//
// The SDK links directly against internal packages for zero extra hops.
// External users import github.com/ppiankov/chainboard/sdk/go/chainboard.
package chainboard
