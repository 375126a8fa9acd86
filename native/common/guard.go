package common

import "errors"

// ErrModulePaused is returned when a mutating operation targets a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a static PauseView backed by a set of module names.
type Pauses map[string]bool

// NewPauses builds a PauseView from a list of module names.
func NewPauses(modules []string) Pauses {
	p := make(Pauses, len(modules))
	for _, m := range modules {
		if m != "" {
			p[m] = true
		}
	}
	return p
}

// IsPaused implements the PauseView interface.
func (p Pauses) IsPaused(module string) bool {
	return p[module]
}
