package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by every mutating call on a halted module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is halted.
type PauseView interface {
	IsPaused(module string) bool
}

// PauseFunc adapts a function to PauseView.
type PauseFunc func(module string) bool

func (f PauseFunc) IsPaused(module string) bool {
	if f == nil {
		return false
	}
	return f(module)
}

// Guard fails with ErrModulePaused, naming module, when p reports it halted.
// A nil view never pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
