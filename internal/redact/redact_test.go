package redact

import "testing"

func TestMaskValuePreservesNumbersAndBools(t *testing.T) {
	if MaskValue(42) != 42 {
		t.Error("expected int preserved")
	}
	if MaskValue(int64(7)) != int64(7) {
		t.Error("expected int64 preserved")
	}
	if MaskValue(3.14) != 3.14 {
		t.Error("expected float preserved")
	}
	if MaskValue(true) != true {
		t.Error("expected bool preserved")
	}
	if MaskValue(nil) != nil {
		t.Error("expected nil preserved")
	}
	if MaskValue("secret-value") != "***" {
		t.Error("expected string masked")
	}
}

func TestRedactMapCaseInsensitive(t *testing.T) {
	data := map[string]any{
		"Token":   "tok_abc123",
		"scope":   "TRADING",
		"attempt": 2,
	}

	out := RedactMap(data, []string{"token"})

	if out["Token"] != "***" {
		t.Errorf("expected Token masked, got %v", out["Token"])
	}
	if out["scope"] != "TRADING" {
		t.Errorf("expected scope untouched, got %v", out["scope"])
	}
	if out["attempt"] != 2 {
		t.Errorf("expected attempt untouched, got %v", out["attempt"])
	}
}

func TestRedactMapDoesNotMutateInput(t *testing.T) {
	data := map[string]any{"token": "tok_x"}
	_ = RedactMap(data, []string{"token"})
	if data["token"] != "tok_x" {
		t.Error("input map was mutated")
	}
}

func TestRedactAutoCoversDefaultsAndExtras(t *testing.T) {
	data := map[string]any{
		"override_token": "tok_live",
		"operator":       "ops-1",
		"custom_field":   "sensitive",
	}

	out := RedactAuto(data, []string{"custom_field"})

	if out["override_token"] != "***" {
		t.Errorf("expected override_token masked, got %v", out["override_token"])
	}
	if out["custom_field"] != "***" {
		t.Errorf("expected custom_field masked, got %v", out["custom_field"])
	}
	if out["operator"] != "ops-1" {
		t.Errorf("expected operator untouched, got %v", out["operator"])
	}
}
