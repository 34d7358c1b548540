// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"github.com/samber/oops"
)

// Error codes for plugin driver failures.
const (
	CodeFilterEvaluationFailed = "FILTER_EVALUATION_FAILED"
	CodeSharedStatePoisoned    = "SHARED_STATE_POISONED"
	CodeInvariantViolation     = "INVARIANT_VIOLATION"
	CodeCapabilityDenied       = "CAPABILITY_DENIED"
	CodeDriverReleased         = "DRIVER_RELEASED"
	CodeInvalidWatchPath       = "INVALID_WATCH_PATH"
	CodeUnknownHookKind        = "UNKNOWN_HOOK_KIND"
	CodeInvalidOrder           = "INVALID_ORDER"
)

// FilterEvaluationError reports that a plugin's filter method failed while the driver
// was being constructed.
//
// The cause stays reachable through errors.Is, but oops code and context lookups see
// only the driver's classification, so a coded cause cannot mask the failing plugin.
type FilterEvaluationError struct {
	PluginIdx PluginIdx
	Plugin    string
	Hook      HookKind
	Cause     error

	coded oops.OopsError
}

// ErrFilterEvaluationFailed builds a FilterEvaluationError.
func ErrFilterEvaluationFailed(idx PluginIdx, name string, kind HookKind, cause error) error {
	e := &FilterEvaluationError{PluginIdx: idx, Plugin: name, Hook: kind, Cause: cause}
	e.coded, _ = oops.AsOops(oops.Code(CodeFilterEvaluationFailed).
		With("plugin_idx", int(idx)).
		With("plugin", name).
		With("hook", kind.String()).
		With("cause", cause.Error()).
		Errorf("plugin %d (%s): %s filter: %v", idx, name, kind, cause))
	return e
}

func (e *FilterEvaluationError) Error() string {
	return e.coded.Error()
}

func (e *FilterEvaluationError) Unwrap() error {
	return e.Cause
}

// As resolves oops lookups to the driver's classification instead of the cause's.
func (e *FilterEvaluationError) As(target any) bool {
	t, ok := target.(*oops.OopsError)
	if !ok {
		return false
	}
	*t = e.coded
	return true
}

// ErrSharedStatePoisoned reports that a guarded update of the module snapshot panicked.
func ErrSharedStatePoisoned() error {
	return oops.Code(CodeSharedStatePoisoned).
		Errorf("module snapshot is poisoned by a failed update")
}

// ErrCapabilityDenied reports that a plugin context lacks a capability.
func ErrCapabilityDenied(name, capability string) error {
	return oops.Code(CodeCapabilityDenied).
		With("plugin", name).
		With("capability", capability).
		Errorf("plugin %s lacks capability %s", name, capability)
}

// ErrDriverReleased reports that a context outlived its driver.
func ErrDriverReleased(name string) error {
	return oops.Code(CodeDriverReleased).
		With("plugin", name).
		Errorf("plugin driver for %s has been released", name)
}

// ErrInvalidWatchPath reports an unusable watch path.
func ErrInvalidWatchPath(path string) error {
	return oops.Code(CodeInvalidWatchPath).
		With("path", path).
		Errorf("invalid watch path %q", path)
}

// invariantViolation panics with a coded error. These conditions are programming errors
// in the driver itself, so the current build is aborted rather than recovered.
func invariantViolation(format string, args ...any) {
	panic(oops.Code(CodeInvariantViolation).Errorf(format, args...))
}

// checkIdx panics when idx does not address a registered plugin.
func checkIdx(idx PluginIdx, n int) {
	if idx < 0 || int(idx) >= n {
		invariantViolation("plugin index %d out of range [0, %d)", idx, n)
	}
}

// checkTables panics when the parallel plugin tables disagree in length.
func checkTables(plugins, filters, contexts int) {
	if plugins != filters || plugins != contexts {
		invariantViolation("table lengths differ: plugins=%d filters=%d contexts=%d", plugins, filters, contexts)
	}
}
