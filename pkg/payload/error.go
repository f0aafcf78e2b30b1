package payload

import (
	"fmt"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
)

const (
	// ReasonManifestError is used when a manifest lacks a field the
	// builder needs.
	ReasonManifestError = "ManifestError"
	// ReasonPatchError is used when a JSON-Patch cannot be applied.
	ReasonPatchError = "PatchError"
	// ReasonIOError is used when a rendered manifest cannot be persisted.
	ReasonIOError = "IOError"
	// ReasonLoadError is used when a package cannot be read from disk.
	ReasonLoadError = "LoadError"
)

// Error is a wrapper for the fatal errors of a build or deploy. It carries
// the identity of the offending resource.
type Error struct {
	Nested  error
	Reason  string
	Message string
	// Name is the resource name, when it could be determined.
	Name string
	// File is the manifest file of the resource.
	File string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Cause() error {
	return e.Nested
}

func (e *Error) Unwrap() error {
	return e.Nested
}

func (e *Error) Summary() string {
	switch e.Reason {
	case ReasonManifestError:
		if len(e.File) > 0 {
			return fmt.Sprintf("the manifest %s is invalid", e.File)
		}
		return "a manifest is invalid"
	case ReasonPatchError:
		if len(e.File) > 0 {
			return fmt.Sprintf("the patches of %s could not be applied", e.File)
		}
		return "a patch could not be applied"
	case ReasonIOError:
		return "a rendered manifest could not be written"
	case ReasonLoadError:
		return "the package could not be loaded"
	}
	return "an unknown error has occurred"
}

// IsReason returns true if err is, or wraps, an *Error with the given reason.
func IsReason(err error, reason string) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason == reason
	}
	return false
}

func newManifestError(r *Resource, msg string, nested error) *Error {
	return &Error{
		Nested:  nested,
		Reason:  ReasonManifestError,
		Message: fmt.Sprintf("invalid manifest %s: %s", r.File, msg),
		Name:    r.Name,
		File:    r.File,
	}
}

func newPatchError(r *Resource, index int, op PatchOperation, nested error) *Error {
	name, _ := r.ResourceName()
	return &Error{
		Nested:  nested,
		Reason:  ReasonPatchError,
		Message: fmt.Sprintf("could not apply patch %d (%s) to %s: %v", index, op, r.File, nested),
		Name:    name,
		File:    r.File,
	}
}

// MessageForError provides a succint explanation of a known API error for
// use in a result status.
func MessageForError(err error) string {
	err = errors.Cause(err)
	switch {
	case apierrors.IsNotFound(err):
		return "resource may have been deleted"
	case apierrors.IsAlreadyExists(err):
		return "resource already exists"
	case apierrors.IsConflict(err):
		return "someone else is updating this resource"
	case apierrors.IsTimeout(err), apierrors.IsServiceUnavailable(err), apierrors.IsUnexpectedServerError(err):
		return "the control plane is down or not responding"
	case apierrors.IsInternalError(err):
		return "the control plane is reporting an internal error"
	case apierrors.IsInvalid(err):
		return "the object is invalid"
	case apierrors.IsUnauthorized(err):
		return "could not authenticate to the control plane"
	case apierrors.IsForbidden(err):
		return "the control plane has forbidden updates to this resource"
	case apierrors.IsServerTimeout(err), apierrors.IsTooManyRequests(err):
		return "the control plane is overloaded and is not accepting updates"
	case meta.IsNoMatchError(err):
		return "the control plane does not recognize this resource"
	default:
		return err.Error()
	}
}
