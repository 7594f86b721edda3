package registry

import (
	"fmt"
	"strings"
)

// Error kinds. These are the wire-visible taxonomy: clients branch on
// the kind to decide between retrying (pool_exhausted), loading a
// category (operation_not_loaded) and fixing their call.
const (
	KindUnknownCategory      = "unknown_category"
	KindUnknownOperation     = "unknown_operation"
	KindOperationNotLoaded   = "operation_not_loaded"
	KindInvalidArguments     = "invalid_arguments"
	KindConfirmationRequired = "confirmation_required"
	KindPoolExhausted        = "pool_exhausted"
	KindExecutionFailure     = "execution_failure"
	KindShutdownInProgress   = "shutdown_in_progress"
)

// Error is a dispatch failure with a taxonomy kind. All dispatch errors
// are invocation-scoped: they never corrupt registry or pool state.
type Error struct {
	Kind    string
	Message string
	// Violations carries the per-field detail for invalid_arguments.
	Violations []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.detail())
}

// detail is the kind-free message used for envelopes, where the kind
// already travels in its own field.
func (e *Error) detail() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Violations, "; "))
	}
	return e.Message
}

func errUnknownCategory(name string) *Error {
	return &Error{Kind: KindUnknownCategory, Message: fmt.Sprintf("no category named %q", name)}
}

func errUnknownOperation(name string) *Error {
	return &Error{Kind: KindUnknownOperation, Message: fmt.Sprintf("no operation named %q", name)}
}

func errNotLoaded(op, category string) *Error {
	return &Error{
		Kind:    KindOperationNotLoaded,
		Message: fmt.Sprintf("operation %q exists but its category %q is not loaded; call load_category first", op, category),
	}
}
