package content

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by FileNotFoundError and FolderNotFoundError.
var ErrNotFound = errors.New("not found")

type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

type DuplicateNameError struct {
	Kind     Kind
	Name     string
	ParentID string
}

func (e *DuplicateNameError) Error() string {
	where := "root"
	if e.ParentID != "" {
		where = "folder " + e.ParentID
	}
	return fmt.Sprintf("a %s named %q already exists in %s", e.Kind, e.Name, where)
}

type CyclicMoveError struct {
	FolderID string
	TargetID string
}

func (e *CyclicMoveError) Error() string {
	return fmt.Sprintf("cannot move folder %s into itself or one of its subfolders (%s)", e.FolderID, e.TargetID)
}

type FileNotFoundError struct {
	ID string
}

func (e *FileNotFoundError) Error() string { return "file not found: " + e.ID }
func (e *FileNotFoundError) Unwrap() error { return ErrNotFound }

type FolderNotFoundError struct {
	ID string
}

func (e *FolderNotFoundError) Error() string { return "folder not found: " + e.ID }
func (e *FolderNotFoundError) Unwrap() error { return ErrNotFound }

// IsUserError reports whether err is a structural or validation error that
// should be shown to the user as a notice rather than logged as a failure.
func IsUserError(err error) bool {
	var (
		inv *InvalidNameError
		dup *DuplicateNameError
		cyc *CyclicMoveError
	)
	return errors.As(err, &inv) || errors.As(err, &dup) || errors.As(err, &cyc) || errors.Is(err, ErrNotFound)
}
