package scram

import (
	"testing"

	"github.com/ppiankov/chainboard/internal/model"
)

func TestCheckAuthoritySufficientBase(t *testing.T) {
	adm := CheckAuthority(model.AuthFullAccess, model.AuthArmOnly, nil)
	if !adm.Allowed || adm.Elevated {
		t.Fatalf("adm = %+v, want plain allow", adm)
	}
}

func TestCheckAuthorityDeniesWithoutStore(t *testing.T) {
	adm := CheckAuthority(model.AuthArmOnly, model.AuthFullAccess, nil)
	if adm.Allowed {
		t.Fatal("must deny without an override store")
	}
	if adm.Reason == "" {
		t.Fatal("denial must carry a reason")
	}
}

func TestCheckAuthorityElevatesAndConsumes(t *testing.T) {
	s := newTestStore(t)
	tok, err := s.CreateToken("night shift escalation", 0)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	adm := CheckAuthority(model.AuthArmOnly, model.AuthFullAccess, s)
	if !adm.Allowed || !adm.Elevated || adm.TokenID != tok.ID {
		t.Fatalf("adm = %+v, want elevation via %s", adm, tok.ID)
	}

	// Single use: the next check finds no active token.
	again := CheckAuthority(model.AuthArmOnly, model.AuthFullAccess, s)
	if again.Allowed {
		t.Fatal("second check must not reuse the consumed token")
	}
}

func TestCheckAuthorityFailsClosedOnUnknownLevel(t *testing.T) {
	adm := CheckAuthority(model.AuthLevel("ROOT"), model.AuthArmOnly, nil)
	if adm.Allowed {
		t.Fatal("unknown base level must deny")
	}
}
