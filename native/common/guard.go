package common

import "errors"

// ErrModulePaused is returned when a native module has been administratively
// halted.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused. A nil view or empty
// module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed PauseView built from configuration at startup.
type StaticPauses map[string]bool

// NewStaticPauses builds a view from the list of paused module names.
func NewStaticPauses(modules []string) StaticPauses {
	p := make(StaticPauses, len(modules))
	for _, m := range modules {
		if m == "" {
			continue
		}
		p[m] = true
	}
	return p
}

// IsPaused implements PauseView.
func (p StaticPauses) IsPaused(module string) bool {
	return p[module]
}
