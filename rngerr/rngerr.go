// Package rngerr defines the error kinds shared by every stage of the
// Relax NG pipeline: loading, simplification, pattern construction,
// validation, and compact-format codec.
//
// The shape is the same one the teacher uses internally for schema
// parse errors (a path-carrying error value, built by panic/recover
// inside a package and converted to a plain error at the package
// boundary) generalized with an explicit Kind so callers can tell a
// malformed schema from a document that merely failed to validate.
package rngerr // import "aqwari.net/relaxng/rngerr"

import "fmt"

// A Kind classifies the error values produced by this module, per
// the error handling design in the specification.
type Kind int

const (
	// SchemaStructure indicates the schema itself is not well-formed
	// Relax NG: wrong namespace, a missing required attribute, a
	// failed meta-schema validation, an unresolvable ref, or a
	// grammar with no start pattern.
	SchemaStructure Kind = iota
	// ResourceLoad indicates a URL could not be fetched, or that a
	// referenced document was not well-formed XML.
	ResourceLoad
	// DatatypeParameter indicates an invalid datatype-library facet
	// parameter.
	DatatypeParameter
	// DatatypeValue indicates a literal failed its declared datatype.
	DatatypeValue
	// Validation indicates an XML document did not match a schema.
	// Validation errors are collected, not returned as a Go error;
	// this Kind exists so callers building their own tooling on top
	// of this module can tag them consistently.
	Validation
	// OldFormat indicates a compact-format envelope is missing its
	// version field.
	OldFormat
	// UnknownFormat indicates a compact-format envelope names a
	// version this codec does not understand.
	UnknownFormat
)

func (k Kind) String() string {
	switch k {
	case SchemaStructure:
		return "schema structure"
	case ResourceLoad:
		return "resource load"
	case DatatypeParameter:
		return "datatype parameter"
	case DatatypeValue:
		return "datatype value"
	case Validation:
		return "validation"
	case OldFormat:
		return "old format"
	case UnknownFormat:
		return "unknown format"
	default:
		return "unknown error kind"
	}
}

// An Error is a single error produced anywhere in this module. Path, if
// non-empty, is the xmltree.Element.Path or walker event path at which
// the error was raised.
type Error struct {
	Kind    Kind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
}

// New builds an *Error of the given kind at path, formatting message
// the way fmt.Sprintf does.
func New(kind Kind, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// abort is the internal panic value used to bubble an *Error up
// through recursive tree walks without threading error returns through
// every call, in the same style as the teacher's xsd/walk.go stop/
// catchParseError pair.
type abort struct{ err *Error }

// Stop panics with an *Error of the given kind, to be recovered by
// Catch at a package's public entry point.
func Stop(kind Kind, path, format string, args ...interface{}) {
	panic(abort{New(kind, path, format, args...)})
}

// Catch recovers a panic raised by Stop and stores it in *err. It must
// be called via defer. Panics that were not raised by Stop are
// re-panicked unchanged.
func Catch(err *error) {
	if r := recover(); r != nil {
		if a, ok := r.(abort); ok {
			*err = a.err
			return
		}
		panic(r)
	}
}
