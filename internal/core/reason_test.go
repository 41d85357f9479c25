package core_test

import (
	"errors"
	"fmt"
	"testing"

	"purchasing-engine/internal/core"
)

func TestValidateReason(t *testing.T) {
	cases := []struct {
		name   string
		reason string
		wantOK bool
	}{
		{"empty", "", false},
		{"too short", "ok", false},
		{"whitespace only", "        ", false},
		{"padding does not count", "  abc  ", false},
		{"exactly minimum", "abcde", true},
		{"normal justification", "reposición de stock semanal", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := core.ValidateReason(tc.reason)
			if tc.wantOK && err != nil {
				t.Errorf("ValidateReason(%q) = %v, want nil", tc.reason, err)
			}
			if !tc.wantOK {
				if err == nil {
					t.Fatalf("ValidateReason(%q) = nil, want error", tc.reason)
				}
				if core.KindOf(err) != core.KindReasonRequired {
					t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindReasonRequired)
				}
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	base := core.E(core.KindOverReceipt, "received 12 of 10")
	if core.KindOf(base) != core.KindOverReceipt {
		t.Errorf("kind = %s, want %s", core.KindOf(base), core.KindOverReceipt)
	}

	// KindOf must see through wrapping layers.
	wrapped := fmt.Errorf("while receiving: %w", base)
	if core.KindOf(wrapped) != core.KindOverReceipt {
		t.Errorf("wrapped kind = %s, want %s", core.KindOf(wrapped), core.KindOverReceipt)
	}

	if core.KindOf(errors.New("plain")) != "" {
		t.Error("plain errors should have no kind")
	}
	if core.KindOf(nil) != "" {
		t.Error("nil error should have no kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := core.Wrap(core.KindDependencyFailure, cause, "inventory api")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if core.KindOf(err) != core.KindDependencyFailure {
		t.Errorf("kind = %s, want %s", core.KindOf(err), core.KindDependencyFailure)
	}
}
