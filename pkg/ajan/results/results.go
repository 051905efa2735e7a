package results

// Definition is a reusable (kind, code, message) template. New call sites
// call Define once at package scope and mint a Result per occurrence.
type Definition struct {
	Kind    ResultKind
	Code    string
	Message string
}

// Define builds a Definition; kind, code and message describe the class
// of result it produces (e.g. success/"OK", error/"ERR").
func Define(kind ResultKind, code string, message string) Definition {
	return Definition{Kind: kind, Code: code, Message: message}
}

// New mints a Result from the Definition.
func (d Definition) New() Result {
	return Result{Kind: d.Kind, Code: d.Code, Message: d.Message}
}

// Result is the outcome of an operation, carrying enough structure
// (kind/code/message) to either present to a caller or embed inside a
// richer, surface-specific result type (see httpfx.Result).
type Result struct { //nolint:errname
	Kind    ResultKind
	Code    string
	Message string
}

func (r Result) Error() string {
	return r.Message
}

func (r Result) IsError() bool {
	return r.Kind == ResultKindError
}
