package block

import "fmt"

// headerError reports a malformed block: a bad magic, an unsupported
// wire version, or a truncated/corrupt UDT or dependency table. The
// caller (the block-source view processor, §4.8) logs the error and
// skips the block; it is not retried.
type headerError struct {
	reason string
	err    error
}

func (e *headerError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("malformed block header: %s: %v", e.reason, e.err)
	}
	return fmt.Sprintf("malformed block header: %s", e.reason)
}

func (e *headerError) Unwrap() error { return e.err }

// objectError reports a single object in an otherwise well-formed
// block that failed to decode against its own UDT — e.g. a field
// offset runs past the object's payload, or a type tag is out of
// range. Per §4.1/§7 a malformed object fails the whole block, with
// the object's index and type name carried as position context rather
// than substituting a null or zero value and continuing.
type objectError struct {
	typeName string
	index    int
	err      error
}

func (e *objectError) Error() string {
	return fmt.Sprintf("object %d (type %s): %v", e.index, e.typeName, e.err)
}

func (e *objectError) Unwrap() error { return e.err }
