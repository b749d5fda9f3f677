package scram

import "github.com/ppiankov/chainboard/internal/model"

// Admission is the outcome of an authorization check.
type Admission struct {
	Allowed  bool
	Elevated bool // granted through a break-glass override
	TokenID  string
	Reason   string
}

// CheckAuthority evaluates whether an operator at level base may perform an
// operation requiring level required. When the base level falls short it
// consults the override store and consumes an active token as a side effect
// (single-use). Fail closed: a nil store, no active token, or a consume
// failure all deny.
func CheckAuthority(base, required model.AuthLevel, store *Store) Admission {
	if base.Allows(required) {
		return Admission{Allowed: true}
	}

	if store == nil {
		return Admission{Reason: "insufficient authorization"}
	}

	token := store.FindActive()
	if token == nil {
		return Admission{Reason: "insufficient authorization, no active override"}
	}

	if err := store.Consume(token.ID); err != nil {
		return Admission{Reason: "override consume failed"}
	}

	return Admission{Allowed: true, Elevated: true, TokenID: token.ID}
}
