package domain

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned when a call to the preset backend fails.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrUnknownPreset is returned when an operation references a preset id that is not in the collection.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrUnknownBand is returned when a band name is not part of the closed band set.
var ErrUnknownBand = errors.New("unknown band")

// ErrCannotDeleteDefault is returned when deleting a built-in preset.
var ErrCannotDeleteDefault = errors.New("cannot delete default preset")

// ErrDuplicateName is returned when a new preset reuses the name of a user preset.
var ErrDuplicateName = errors.New("duplicate preset name")

// ErrMalformedPreset is returned when a preset or gain map is missing bands or ids.
var ErrMalformedPreset = errors.New("malformed preset")

// ErrPrivilegedExecutionDenied is returned when the OS refuses to launch an elevated script.
var ErrPrivilegedExecutionDenied = errors.New("privileged execution denied")

// ErrScriptExecutionFailed is returned when a script ran but exited with a non-zero status.
var ErrScriptExecutionFailed = errors.New("script execution failed")

// BackendError wraps a backend failure so it matches ErrBackendUnavailable
// while keeping the original cause reachable through errors.Is/As.
func BackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
