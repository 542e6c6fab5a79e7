package common

import (
	"errors"
	"testing"
)

func TestGuardNilViewAllows(t *testing.T) {
	if err := Guard(nil, "futures"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestGuardPausedModule(t *testing.T) {
	pauses := NewStaticPauses([]string{"futures", ""})
	if err := Guard(pauses, "futures"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "swap"); err != nil {
		t.Fatalf("unpaused module should pass, got %v", err)
	}
}
