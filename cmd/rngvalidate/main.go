// Command rngvalidate simplifies a Relax NG schema, builds its pattern
// algebra, and validates zero or more XML documents against it,
// reporting structured errors per document.
//
// It follows the teacher's cmd/xsdparse shape: flag-based, a single
// main that reads files named on the command line, log.SetFlags(0) so
// diagnostics read like plain error lines rather than timestamped log
// entries.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"aqwari.net/relaxng/compact"
	"aqwari.net/relaxng/internal/commandline"
	"aqwari.net/relaxng/pattern"
	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/rngload"
	"aqwari.net/relaxng/simplify"
	"aqwari.net/relaxng/walker"
	"aqwari.net/relaxng/xmltree"
)

// A SimplifierFunc runs schema simplification; "default" is the only
// builtin, but the Registry is open for a caller embedding this
// package to add its own.
type SimplifierFunc func(root *xmltree.Element, opts ...simplify.Option) (*xmltree.Element, error)

// A ValidatorFunc validates doc against g and returns accumulated
// errors; "none" always returns nil, skipping validation entirely.
type ValidatorFunc func(g *pattern.Grammar, doc *xmltree.Element) []*walker.ValidationError

// Registry holds the named simplifiers and validators the CLI can
// select between. It is built once in main and passed down explicitly
// — no package-level global map, per the design note against global
// registries.
type Registry struct {
	Simplifiers map[string]SimplifierFunc
	Validators  map[string]ValidatorFunc
}

// DefaultRegistry returns the Registry main uses, with exactly the
// "default" simplifier/validator and the "none" validator that skips
// validation (document is only checked for well-formedness and the
// schema is only checked for buildability).
func DefaultRegistry() *Registry {
	return &Registry{
		Simplifiers: map[string]SimplifierFunc{
			"default": simplify.Simplify,
		},
		Validators: map[string]ValidatorFunc{
			"default": walker.ValidateTree,
			"none": func(*pattern.Grammar, *xmltree.Element) []*walker.ValidationError {
				return nil
			},
		},
	}
}

// incompleteTypes implements flag.Value and the boolFlag interface so
// --allow-incomplete-types works both bare and as
// --allow-incomplete-types=quiet.
type incompleteTypes struct {
	enabled bool
	quiet   bool
}

func (f *incompleteTypes) String() string {
	if f == nil || !f.enabled {
		return "false"
	}
	if f.quiet {
		return "quiet"
	}
	return "true"
}

func (f *incompleteTypes) Set(s string) error {
	f.enabled = true
	f.quiet = s == "quiet"
	return nil
}

func (f *incompleteTypes) IsBoolFlag() bool { return true }

var (
	simplifierName  = flag.String("simplifier", "default", "named simplifier to run (see Registry)")
	validatorName   = flag.String("validator", "default", `named validator to run, or "none" to skip validation`)
	noOptimizeIDs   = flag.Bool("no-optimize-ids", false, "disable compact-format rename optimization")
	formatVersion   = flag.Int("format-version", 3, "compact-format version to emit (must be >= 3)")
	simplifyOnly    = flag.Bool("simplify-only", false, "stop after simplification; print the simplified schema and exit")
	simplifyTo      = flag.Int("simplify-to", 0, "stop simplification after the numbered step (1-16); 0 runs every step")
	noOutput        = flag.Bool("no-output", false, "suppress printing the simplified schema with -simplify-only")
	simplifiedInput = flag.Bool("simplified-input", false, "treat the schema file as already simplified")
	keepTemp        = flag.Bool("keep-temp", false, "unused: this implementation creates no temporary files")
	verbose         = flag.Bool("verbose", false, "log each simplification step")
	timing          = flag.Bool("timing", false, "log wall-clock time for each phase")
	verboseFormat   = flag.Bool("verbose-format", false, "indent compact-format output")
	compactOut      = flag.String("compact-out", "", "write the built grammar in compact format (C7) to this file")
	allowIncomplete incompleteTypes
	includePaths    commandline.Strings
	rewriteRules    commandline.ReplaceRuleList
)

func init() {
	flag.Var(&allowIncomplete, "allow-incomplete-types", `tolerate datatype libraries with incomplete facet coverage; "quiet" suppresses the warning`)
	flag.Var(&includePaths, "include-paths", "base directory for resolving relative externalRef/include targets (repeatable; only the first value is used)")
	flag.Var(&rewriteRules, "rewrite-include", `rewrite externalRef/include locations before fetching, as "regex -> replacement" (repeatable)`)
}

type stderrLogger struct{}

func (stderrLogger) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] schema.rng [document.xml ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *formatVersion < 3 {
		log.Fatalf("-format-version must be >= 3, got %d", *formatVersion)
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(DefaultRegistry(), flag.Args()))
}

// run returns the process exit code: 0 on success, 1 for a schema or
// validation error, 2 for anything this CLI didn't anticipate.
func run(reg *Registry, args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("internal error: %v", r)
			exitCode = 2
		}
	}()

	schemaPath, docPaths := args[0], args[1:]
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Print(err)
		return 1
	}
	root, err := xmltree.Parse(schemaBytes)
	if err != nil {
		log.Print(err)
		return 1
	}

	root, err = applySimplification(reg, root)
	if err != nil {
		log.Print(err)
		return 1
	}
	if *simplifyOnly {
		if !*noOutput {
			fmt.Println(string(xmltree.MarshalIndent(root, "", "  ")))
		}
		return 0
	}

	g, err := pattern.Build(root)
	if err != nil {
		log.Print(err)
		return 1
	}
	if allowIncomplete.enabled && !allowIncomplete.quiet {
		log.Printf("warning: -allow-incomplete-types is set; datatype facet checking is best-effort in this implementation")
	}

	if *compactOut != "" {
		if err := writeCompact(g, *compactOut); err != nil {
			log.Print(err)
			return 1
		}
	}

	validate, ok := reg.Validators[*validatorName]
	if !ok {
		log.Printf("unknown validator %q", *validatorName)
		return 2
	}

	failed := false
	for _, docPath := range docPaths {
		docBytes, err := os.ReadFile(docPath)
		if err != nil {
			log.Print(err)
			failed = true
			continue
		}
		doc, err := xmltree.Parse(docBytes)
		if err != nil {
			log.Print(err)
			failed = true
			continue
		}
		errs := validate(g, doc)
		for _, e := range errs {
			log.Printf("%s: %s", docPath, e.Error())
		}
		if len(errs) > 0 {
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

func applySimplification(reg *Registry, root *xmltree.Element) (*xmltree.Element, error) {
	if *simplifiedInput {
		return root, nil
	}
	simplifyFn, ok := reg.Simplifiers[*simplifierName]
	if !ok {
		return nil, rngerr.New(rngerr.SchemaStructure, "", "unknown simplifier %q", *simplifierName)
	}

	var opts []simplify.Option
	if *verbose || *timing {
		opts = append(opts, simplify.LogOutput(stderrLogger{}), simplify.LogLevel(1))
	}
	if *simplifyTo != 0 {
		opts = append(opts, simplify.SimplifyTo(*simplifyTo))
	}
	loaderOpts := []rngload.Option{rngload.LogOutput(stderrLogger{})}
	if len(includePaths) > 0 {
		// rngload.Loader resolves relative hrefs against a single
		// BaseDir; -include-paths is accepted repeatably for CLI
		// compatibility but only its first value is wired through.
		loaderOpts = append(loaderOpts, rngload.WithBaseDir(includePaths[0]))
	}
	if len(rewriteRules) > 0 {
		loaderOpts = append(loaderOpts, rngload.RewriteLocations(rewriteRules))
	}
	opts = append(opts, simplify.WithLoader(rngload.New(loaderOpts...)))
	// -keep-temp is accepted for CLI-surface compatibility only: this
	// implementation creates no temporary files, so there is nothing for
	// it to control. -no-optimize-ids, -format-version, and
	// -verbose-format all take effect in writeCompact, once -compact-out
	// names a file to actually write.
	return simplifyFn(root, opts...)
}

// writeCompact serializes g in compact format (C7) to path, honoring
// -no-optimize-ids, -format-version, and -verbose-format.
func writeCompact(g *pattern.Grammar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return rngerr.New(rngerr.ResourceLoad, path, "%v", err)
	}
	defer f.Close()

	err = compact.Write(g, f, compact.Writer{
		Rename:        !*noOptimizeIDs,
		FormatVersion: *formatVersion,
		Indent:        *verboseFormat,
	})
	if err != nil {
		return rngerr.New(rngerr.ResourceLoad, path, "writing compact format: %v", err)
	}
	return nil
}
