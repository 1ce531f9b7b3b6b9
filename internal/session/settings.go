package session

import (
	"errors"
	"fmt"

	"github.com/nhath/ezspanner/internal/format"
)

// ErrUnknownSetting is returned by ToggleSetting for a name it does not know.
var ErrUnknownSetting = errors.New("unknown setting")

// ExecutionSettings controls how execute requests are handled.
type ExecutionSettings struct {
	ConfirmBeforeExecute bool `toml:"confirm_execution"`
}

// Setting names a user-toggleable setting.
type Setting string

const (
	SettingMultilineFormat  Setting = "multiline_format"
	SettingConfirmExecution Setting = "confirm_execution"
)

// Settings lists every toggleable setting in display order.
var Settings = []Setting{SettingMultilineFormat, SettingConfirmExecution}

// Label returns a human readable name.
func (s Setting) Label() string {
	switch s {
	case SettingMultilineFormat:
		return "Multi-line format"
	case SettingConfirmExecution:
		return "Confirm before execution"
	default:
		return string(s)
	}
}

// ParseSetting resolves a setting by name.
func ParseSetting(name string) (Setting, error) {
	for _, s := range Settings {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSetting, name)
}

func applySetting(f *format.Settings, e *ExecutionSettings, name Setting, value bool) error {
	switch name {
	case SettingMultilineFormat:
		f.Multiline = value
	case SettingConfirmExecution:
		e.ConfirmBeforeExecute = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return nil
}
