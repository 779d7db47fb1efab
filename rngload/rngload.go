// Package rngload fetches and parses Relax NG schema documents.
//
// A Loader turns a URL into an xmltree.Element tree containing only
// Relax NG structure elements, following the shape of the teacher's
// xsd.Normalize/http.Get(ref.Location) fetch path, generalized with the
// load/loading cache-and-cycle-guard structure also found in
// independently retrieved schema-loader code (see DESIGN.md).
package rngload // import "aqwari.net/relaxng/rngload"

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"aqwari.net/relaxng/internal/commandline"
	"aqwari.net/relaxng/rngerr"
	"aqwari.net/relaxng/xmltree"
)

// StructureNS is the Relax NG structure namespace. Any element found
// outside of it during a Fetch is rejected.
const StructureNS = "http://relaxng.org/ns/structure/1.0"

// A Logger receives diagnostic output from a Loader, the same
// minimal interface the teacher's xsdgen.Config accepts.
type Logger interface {
	Printf(format string, v ...interface{})
}

// A Loader fetches and parses Relax NG schema documents, caching
// already-loaded locations and guarding against include/externalRef
// cycles.
type Loader struct {
	// BaseDir resolves relative file paths and hrefs. Defaults to
	// the current working directory.
	BaseDir string
	// HTTPClient fetches http(s) URLs. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	logger   Logger
	loglevel int

	mu      sync.Mutex
	loaded  map[string]*xmltree.Element
	loading map[string]bool

	rewrites commandline.ReplaceRuleList
}

// An Option configures a Loader. Each Option returns an Option that
// restores the previous setting, in the teacher's xsdgen.Option style.
type Option func(*Loader) Option

// LogOutput sets the Loader's diagnostic logger.
func LogOutput(l Logger) Option {
	return func(ld *Loader) Option {
		prev := ld.logger
		ld.logger = l
		return LogOutput(prev)
	}
}

// LogLevel sets the verbosity of messages sent to the configured
// Logger; higher is more verbose.
func LogLevel(n int) Option {
	return func(ld *Loader) Option {
		prev := ld.loglevel
		ld.loglevel = n
		return LogLevel(prev)
	}
}

// WithHTTPClient overrides the client used for http(s) URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(ld *Loader) Option {
		prev := ld.HTTPClient
		ld.HTTPClient = c
		return WithHTTPClient(prev)
	}
}

// WithBaseDir overrides the directory relative paths are resolved
// against.
func WithBaseDir(dir string) Option {
	return func(ld *Loader) Option {
		prev := ld.BaseDir
		ld.BaseDir = dir
		return WithBaseDir(prev)
	}
}

// RewriteLocations applies rules, in order, to every include/externalRef
// location before it is resolved against BaseDir: the first rule whose
// From pattern matches rewrites the location with To (regexp.ReplaceAll
// semantics) and no further rule is tried. This lets a caller redirect
// fetches (e.g. a vendored mirror of a remote schema set) without
// editing the schema files themselves.
func RewriteLocations(rules commandline.ReplaceRuleList) Option {
	return func(ld *Loader) Option {
		prev := ld.rewrites
		ld.rewrites = rules
		return RewriteLocations(prev)
	}
}

// New returns a Loader ready to Fetch documents.
func New(opts ...Option) *Loader {
	ld := &Loader{
		HTTPClient: http.DefaultClient,
		loaded:     make(map[string]*xmltree.Element),
		loading:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

func (ld *Loader) logf(format string, v ...interface{}) {
	if ld.logger != nil && ld.loglevel > 0 {
		ld.logger.Printf(format, v...)
	}
}

// Option reconfigures an existing Loader, returning an Option that
// reverts the last applied change.
func (ld *Loader) Option(opts ...Option) (previous Option) {
	for _, opt := range opts {
		previous = opt(ld)
	}
	return previous
}

func (ld *Loader) resolve(location string) string {
	if location == "" {
		return location
	}
	location = ld.rewrite(location)
	if u, err := url.Parse(location); err == nil && u.IsAbs() {
		return location
	}
	base := ld.BaseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, location)
}

// rewrite applies the first matching rule in ld.rewrites to location,
// or returns it unchanged if none match.
func (ld *Loader) rewrite(location string) string {
	for _, rule := range ld.rewrites {
		if rule.From.MatchString(location) {
			return rule.From.ReplaceAllString(location, rule.To)
		}
	}
	return location
}

// Fetch reads and parses the Relax NG document at location, which may
// be an http(s) URL or a local file path (resolved against BaseDir if
// relative). Already-fetched locations are served from cache; a
// location currently being fetched (an include/externalRef cycle)
// returns a ResourceLoad error rather than recursing forever.
//
// Every element in the returned tree is guaranteed to be in the
// Relax NG structure namespace; any foreign element is rejected with
// a SchemaStructure error.
func (ld *Loader) Fetch(location string) (*xmltree.Element, error) {
	key := ld.resolve(location)

	ld.mu.Lock()
	if root, ok := ld.loaded[key]; ok {
		ld.mu.Unlock()
		return root, nil
	}
	if ld.loading[key] {
		ld.mu.Unlock()
		return nil, rngerr.New(rngerr.ResourceLoad, location, "cyclic include/externalRef while loading %q", key)
	}
	ld.loading[key] = true
	ld.mu.Unlock()

	defer func() {
		ld.mu.Lock()
		delete(ld.loading, key)
		ld.mu.Unlock()
	}()

	ld.logf("rngload: fetching %s", key)
	data, contentType, err := ld.read(key)
	if err != nil {
		return nil, rngerr.New(rngerr.ResourceLoad, location, "%v", err)
	}
	data, err = decodeCharset(data, contentType)
	if err != nil {
		return nil, rngerr.New(rngerr.ResourceLoad, location, "decoding %q: %v", key, err)
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, rngerr.New(rngerr.ResourceLoad, location, "parsing %q: %v", key, err)
	}
	if err := checkNamespace(root); err != nil {
		return nil, err
	}

	ld.mu.Lock()
	ld.loaded[key] = root
	ld.mu.Unlock()
	return root, nil
}

func (ld *Loader) read(location string) (data []byte, contentType string, err error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		client := ld.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		rsp, err := client.Get(location)
		if err != nil {
			return nil, "", err
		}
		defer rsp.Body.Close()
		if rsp.StatusCode != http.StatusOK {
			return nil, "", &rngerr.Error{Kind: rngerr.ResourceLoad, Path: location, Message: rsp.Status}
		}
		data, err := io.ReadAll(rsp.Body)
		return data, rsp.Header.Get("Content-Type"), err
	}
	data, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
	return data, "", err
}

// decodeCharset normalizes data to utf-8, consulting the Content-Type
// header (if any) and falling back to BOM/content sniffing via
// golang.org/x/net/html/charset, the teacher's direct go.mod dependency
// given a concrete job here (see DESIGN.md).
func decodeCharset(data []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// checkNamespace verifies every element in the tree is in the Relax NG
// structure namespace, per spec.md §6 / §4.2.
func checkNamespace(root *xmltree.Element) error {
	for _, el := range root.Flatten() {
		if el.Name.Space != StructureNS {
			return rngerr.New(rngerr.SchemaStructure, el.Path(),
				"element <%s> is not in the Relax NG structure namespace", el.Name.Local)
		}
	}
	return nil
}
