// Package simplify rewrites a parsed Relax NG schema tree through the
// ordered sequence of simplification steps defined by the Relax NG
// specification, so that the resulting tree uses only the restricted
// "simplified" form the pattern builder (package pattern) requires.
//
// The pipeline shape — a fixed, ordered list of pure rewrite passes
// applied in sequence to an xmltree.Element, each one a pure function
// of the tree so far — is modeled directly on the teacher's
// xsd.Normalize, which applies its own ordered sequence of XSD
// rewrites (shorthand expansion, ref flattening, anonymous type
// naming) the same way.
package simplify // import "aqwari.net/relaxng/simplify"

import (
	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/rngload"
	"aqwari.net/relaxng/xmltree"
)

// StructureNS is the Relax NG structure namespace.
const StructureNS = rngload.StructureNS

// BuiltinDatatypeLibrary is the empty string, the URI of the
// built-in (token/string) datatype library per the Relax NG spec.
const BuiltinDatatypeLibrary = ""

// A Logger receives diagnostic output during simplification.
type Logger interface {
	Printf(format string, v ...interface{})
}

// A Config holds the options that control a single Simplify call.
type Config struct {
	logger   Logger
	loglevel int
	loader   *rngload.Loader
	stopAt   int // 0 means "run every pass"
}

// An Option configures a Config. Each Option returns an Option that
// reverts the change, in the teacher's xsdgen.Option idiom.
type Option func(*Config) Option

// LogOutput sets the Logger used for --verbose/--timing style output.
func LogOutput(l Logger) Option {
	return func(cfg *Config) Option {
		prev := cfg.logger
		cfg.logger = l
		return LogOutput(prev)
	}
}

// LogLevel sets the verbosity of messages sent to the configured Logger.
func LogLevel(n int) Option {
	return func(cfg *Config) Option {
		prev := cfg.loglevel
		cfg.loglevel = n
		return LogLevel(prev)
	}
}

// WithLoader supplies the rngload.Loader used to resolve
// <externalRef>/<include> hrefs. If not given, a default Loader
// rooted at the current directory is used.
func WithLoader(ld *rngload.Loader) Option {
	return func(cfg *Config) Option {
		prev := cfg.loader
		cfg.loader = ld
		return WithLoader(prev)
	}
}

// SimplifyTo stops the pipeline after the numbered step (1-16,
// matching the step numbers in the specification's §4.3), for
// debugging. A value of 0 (the default) runs every step.
func SimplifyTo(n int) Option {
	return func(cfg *Config) Option {
		prev := cfg.stopAt
		cfg.stopAt = n
		return SimplifyTo(prev)
	}
}

func (cfg *Config) logf(format string, v ...interface{}) {
	if cfg.logger != nil && cfg.loglevel > 0 {
		cfg.logger.Printf(format, v...)
	}
}

// a pass is one of the sixteen ordered rewrite steps. Each pass
// mutates root in place and may call rngerr.Stop to abort with a
// SchemaStructure (or ResourceLoad) error, caught at Simplify's single
// recover point.
type pass struct {
	n    int
	name string
	fn   func(cfg *Config, root *xmltree.Element) *xmltree.Element
}

// pipeline lists the sixteen steps in order. Passes 3 and 4 may
// replace the root (external inlining at the very top of the
// document), so each pass both receives and returns the current root.
var pipeline = []pass{
	{1, "whitespace and xml:base", passWhitespace},
	{2, "datatypeLibrary propagation", passDatatypeLibrary},
	{3, "externalRef inlining", passExternalRef},
	{4, "include inlining", passInclude},
	{5, "name-class and element/attribute normalization", passNameClass},
	{6, "ns propagation", passNsPropagation},
	{7, "QName splitting", passQName},
	{8, "div flattening", passFlatten},
	{9, "binary normalization", passBinary},
	{10, "mixed normalization", passMixed},
	{11, "optional/zeroOrMore desugaring", passOptional},
	{12, "attribute defaults and value type defaulting", passValueDefault},
	{13, "notAllowed propagation", passNotAllowed},
	{14, "empty propagation", passEmpty},
	{15, "grammar unification", passGrammar},
	{16, "define-per-element", passDefinePerElement},
}

// Simplify applies the ordered Relax NG simplification steps to root,
// returning the rewritten tree. root is mutated in place and also
// returned for convenience; callers should use the return value, since
// some passes (external/include inlining) may replace the document
// element entirely.
func Simplify(root *xmltree.Element, opts ...Option) (result *xmltree.Element, err error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.loader == nil {
		cfg.loader = rngload.New()
	}

	defer rngerr.Catch(&err)

	for _, p := range pipeline {
		if cfg.stopAt != 0 && p.n > cfg.stopAt {
			break
		}
		cfg.logf("simplify: step %d: %s", p.n, p.name)
		root = p.fn(cfg, root)
	}
	return root, nil
}

// newElement returns a freshly allocated, unattached Relax NG
// structure element with the given local name.
func newElement(local string) *xmltree.Element {
	return xmltree.NewElement(StructureNS, local)
}

// elementChildren returns only the *xmltree.Element children of el, in
// document order, skipping Text nodes.
func elementChildren(el *xmltree.Element) []*xmltree.Element {
	var result []*xmltree.Element
	for _, c := range el.Children {
		if e, ok := c.(*xmltree.Element); ok {
			result = append(result, e)
		}
	}
	return result
}

// isRNG reports whether el is a Relax NG structure element with the
// given local name.
func isRNG(el *xmltree.Element, local string) bool {
	return el.Name.Space == StructureNS && el.Name.Local == local
}

// walkElements calls fn for every Relax NG element in the tree rooted
// at root, in depth-first document order, including root itself.
func walkElements(root *xmltree.Element, fn func(*xmltree.Element)) {
	for _, el := range root.Flatten() {
		fn(el)
	}
}
