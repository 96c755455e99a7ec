package diag

import "fmt"

// Error is a generic error type that carries a message and the source range
// it applies to. Tag parameterizes the type so that errors from different
// subsystems (tokenizer, docopt grammar, universal-variable protocol, ...)
// remain distinguishable to errors.As while sharing one implementation.
type Error[Tag ErrorTag] struct {
	Message string
	Name    string
	Code    string
	Ranging
	// Partial is set when the error is caused by input ending prematurely,
	// e.g. an unterminated quote whose closer might still arrive on the next
	// line of input.
	Partial bool
}

// ErrorTag identifies the subsystem an Error belongs to, for use in error
// messages.
type ErrorTag interface {
	ErrorTag() string
}

func (e *Error[Tag]) Error() string {
	var tag Tag
	return fmt.Sprintf("%s: %s", tag.ErrorTag(), e.Message)
}

// UnpackErrors returns every *Error[Tag] contained in err, recursing into
// multi-errors produced by errors.Join.
func UnpackErrors[Tag ErrorTag](err error) []*Error[Tag] {
	if err == nil {
		return nil
	}
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*Error[Tag]
		for _, sub := range u.Unwrap() {
			out = append(out, UnpackErrors[Tag](sub)...)
		}
		return out
	}
	if e, ok := err.(*Error[Tag]); ok {
		return []*Error[Tag]{e}
	}
	return nil
}
