// Package vcserr defines the typed error taxonomy shared across the
// object engine. Engine operations surface their failures as errors
// built with this package, so the cli layer (and tests) can branch on
// Kind with errors.Is/errors.As rather than string-match. A few
// low-level helpers (digest.Parse, index.ValidatePath, objects.BuildCommit)
// and internal/config return plain fmt errors instead.
package vcserr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of engine failure.
type Kind string

const (
	NotARepository   Kind = "not_a_repository"
	NotFound         Kind = "not_found"
	Corrupted        Kind = "corrupted"
	InvalidRef       Kind = "invalid_ref"
	DirtyWorkingTree Kind = "dirty_working_tree"
	MergeConflict    Kind = "merge_conflict"
	UnrelatedHistory Kind = "unrelated_histories"
	BranchExists     Kind = "branch_already_exists"
	BranchInUse      Kind = "branch_in_use"
	TooDeep          Kind = "too_deep"
	IOError          Kind = "io_error"
)

// Error is the concrete error type surfaced by every engine operation.
type Error struct {
	Kind  Kind
	Msg   string
	Paths []string // offending paths, for DirtyWorkingTree / MergeConflict
	Err   error    // wrapped underlying error, if any
}

func (e *Error) Error() string {
	if e.Msg == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if len(e.Paths) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Kind, e.Msg, e.Paths)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, vcserr.New(kind, "")) style matching, and is
// also what lets callers compare against the Kind sentinels below via
// errors.Is(err, vcserr.ErrNotFound) etc.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithPaths attaches offending paths (DirtyWorkingTree / MergeConflict).
func WithPaths(kind Kind, msg string, paths []string) *Error {
	return &Error{Kind: kind, Msg: msg, Paths: paths}
}

// sentinel values usable with errors.Is for quick kind checks.
var (
	ErrNotARepository   = &Error{Kind: NotARepository}
	ErrNotFound         = &Error{Kind: NotFound}
	ErrCorrupted        = &Error{Kind: Corrupted}
	ErrInvalidRef       = &Error{Kind: InvalidRef}
	ErrDirtyWorkingTree = &Error{Kind: DirtyWorkingTree}
	ErrMergeConflict    = &Error{Kind: MergeConflict}
	ErrUnrelatedHistory = &Error{Kind: UnrelatedHistory}
	ErrBranchExists     = &Error{Kind: BranchExists}
	ErrBranchInUse      = &Error{Kind: BranchInUse}
	ErrTooDeep          = &Error{Kind: TooDeep}
	ErrIOError          = &Error{Kind: IOError}
)

// KindOf extracts the Kind from err, if it (or something it wraps) is
// an *Error. The zero Kind is returned otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PathsOf extracts the offending paths from err, if any.
func PathsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Paths
	}
	return nil
}
