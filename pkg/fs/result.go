package fs

// choice is the internal state of a BoolOrError.
type choice int

const (
	choiceError choice = iota // zero value: could not determine
	choiceFalse
	choiceTrue
)

// BoolOrError is a three-way answer to a backend query, distinguishing a
// definitive "no" from "the question could not be answered".
//
// Predicates that hit storage (Exists, IsDir, TryLock) can fail for reasons
// that have nothing to do with the answer itself: a permission error while
// statting a path does not mean the path is absent. Wrapping the answer in
// this type forces callers to say which of the three outcomes they are
// looking for instead of collapsing the result into a plain bool.
//
// The zero value is the error state. Once constructed from a bool the value
// never silently becomes an error; only SetError moves it there.
//
// Usage Pattern:
//
//	switch exists := fsys.Exists(path); {
//	case exists.IsTrue():
//	    // path is there
//	case exists.IsFalse():
//	    // path is definitively absent
//	default:
//	    // backend could not answer; do not treat as absent
//	}
type BoolOrError struct {
	c choice
}

// Bool constructs a definitive BoolOrError from a boolean answer.
func Bool(v bool) BoolOrError {
	r := BoolOrError{}
	r.Set(v)
	return r
}

// ErrorResult constructs a BoolOrError in the indeterminate state.
func ErrorResult() BoolOrError {
	return BoolOrError{}
}

// IsTrue reports whether the answer is a definitive yes.
func (r BoolOrError) IsTrue() bool { return r.c == choiceTrue }

// IsFalse reports whether the answer is a definitive no.
func (r BoolOrError) IsFalse() bool { return r.c == choiceFalse }

// IsError reports whether the question could not be answered.
func (r BoolOrError) IsError() bool { return r.c == choiceError }

// Set replaces the value with a definitive boolean answer.
func (r *BoolOrError) Set(v bool) {
	if v {
		r.c = choiceTrue
	} else {
		r.c = choiceFalse
	}
}

// SetError moves the value to the indeterminate state.
func (r *BoolOrError) SetError() { r.c = choiceError }
