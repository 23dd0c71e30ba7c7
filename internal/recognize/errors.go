package recognize

import "errors"

// FatalKind names the terminal failure modes of a detection session.
type FatalKind string

const (
	PermissionDenied   FatalKind = "permission_denied"
	DeviceUnavailable  FatalKind = "device_unavailable"
	ServiceUnavailable FatalKind = "service_unavailable"
	AssetUnresolved    FatalKind = "asset_unresolved"
)

// FatalError marks an error as terminal for the session that produced it.
type FatalError struct {
	Kind FatalKind
	Err  error
}

func (e *FatalError) Error() string {
	if e == nil {
		return "fatal recognition error"
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewFatalError(kind FatalKind, err error) error {
	return &FatalError{Kind: kind, Err: err}
}

// AsFatal unwraps err into a FatalError if it carries one.
func AsFatal(err error) (*FatalError, bool) {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return fatal, true
	}
	return nil, false
}
