package tree

import (
	"errors"
	"fmt"
)

// Outcome is the closed result set every mutation step reports. Operations
// branch on outcomes internally instead of raising errors; public operations
// additionally return a typed *Error for the failure outcomes.
type Outcome uint8

const (
	// Success: the operation completed and mutated the tree.
	Success Outcome = iota
	// SuccessNothingDone: a reported no-op, e.g. renaming a node to its
	// current name or moving it into its current parent.
	SuccessNothingDone
	// ItemExists: a sibling of the target name already exists and is not
	// folder-mergeable.
	ItemExists
	// InvalidOperation: the operation is illegal on the target, e.g. any
	// rename/move/delete of the root.
	InvalidOperation
	// CircularReference: the destination is the moved node itself or one of
	// its descendants.
	CircularReference
	// PartialSuccess: a bulk merge moved some but not all children.
	PartialSuccess
	// NoSuccess: a bulk merge moved no children at all.
	NoSuccess
)

// Ok reports whether the outcome is one of the success variants.
func (o Outcome) Ok() bool {
	return o == Success || o == SuccessNothingDone
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SuccessNothingDone:
		return "success-nothing-done"
	case ItemExists:
		return "item-exists"
	case InvalidOperation:
		return "invalid-operation"
	case CircularReference:
		return "circular-reference"
	case PartialSuccess:
		return "partial-success"
	case NoSuccess:
		return "no-success"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// ErrorKind classifies engine errors by cause rather than by type.
type ErrorKind uint8

const (
	// KindNameCollision: a sibling of the target name already exists.
	KindNameCollision ErrorKind = iota
	// KindRootViolation: rename/move/delete/merge-source attempted on the root.
	KindRootViolation
	// KindCircularReference: the destination lies inside the moved subtree.
	KindCircularReference
	// KindNotFound: a path segment lookup failed.
	KindNotFound
	// KindInvalidTarget: the operation was handed the wrong node variant,
	// e.g. creating a child under a data leaf.
	KindInvalidTarget
)

func (k ErrorKind) String() string {
	switch k {
	case KindNameCollision:
		return "name collision"
	case KindRootViolation:
		return "root violation"
	case KindCircularReference:
		return "circular reference"
	case KindNotFound:
		return "not found"
	case KindInvalidTarget:
		return "invalid target"
	}
	return fmt.Sprintf("errorkind(%d)", uint8(k))
}

// Error is the engine error type. Path identifies the offending node or path
// so hosts can surface a useful message.
type Error struct {
	Kind ErrorKind
	Path string
	msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	return fmt.Sprintf("%s: %s: %q", e.Kind, e.msg, e.Path)
}

func newError(kind ErrorKind, path, msg string) *Error {
	return &Error{Kind: kind, Path: path, msg: msg}
}

// ErrorKindOf extracts the ErrorKind from err, reporting false for nil or
// foreign errors.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsNameCollision reports whether err is an engine name-collision error.
func IsNameCollision(err error) bool {
	k, ok := ErrorKindOf(err)
	return ok && k == KindNameCollision
}

// IsRootViolation reports whether err is an engine root-violation error.
func IsRootViolation(err error) bool {
	k, ok := ErrorKindOf(err)
	return ok && k == KindRootViolation
}

// IsCircularReference reports whether err is an engine circular-reference error.
func IsCircularReference(err error) bool {
	k, ok := ErrorKindOf(err)
	return ok && k == KindCircularReference
}

// IsNotFound reports whether err is an engine not-found error.
func IsNotFound(err error) bool {
	k, ok := ErrorKindOf(err)
	return ok && k == KindNotFound
}
