package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "termswap"); err != nil {
		t.Fatalf("nil view: %v", err)
	}
	halted := PauseFunc(func(module string) bool { return module == "termswap" })
	if err := Guard(halted, "termswap"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(halted, "bank"); err != nil {
		t.Fatalf("unrelated module: %v", err)
	}
	if err := Guard(halted, ""); err != nil {
		t.Fatalf("empty module: %v", err)
	}
	if PauseFunc(nil).IsPaused("termswap") {
		t.Fatalf("nil func must not pause")
	}
}
