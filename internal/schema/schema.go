// Package schema validates backend responses against the JSON Schemas
// embedded in this package before they are decoded and rendered.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Names of the embedded schemas, one per endpoint.
const (
	GPUResource = "gpu-resource"
	ServerList  = "server-list"
	MyServer    = "my-server"
	MyPVCs      = "my-pvcs"
	Browse      = "browse"
)

//go:embed schemas/*.schema.json
var files embed.FS

var (
	compileOnce sync.Once
	compileErr  error
	compiled    map[string]*jsonschema.Schema
	printer     = message.NewPrinter(language.English)
)

// Issue is a single schema violation.
type Issue struct {
	Path    string // Instance location (e.g., "/pvcs/0/path")
	Message string // Human-readable error message
	Keyword string // Schema keyword that failed
}

// ValidationError reports a response that does not match its schema.
type ValidationError struct {
	Schema string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("%s response does not match schema", e.Schema)
	}
	first := e.Issues[0]
	msg := fmt.Sprintf("%s response does not match schema: %s", e.Schema, first.Message)
	if first.Path != "" {
		msg = fmt.Sprintf("%s response does not match schema at %s: %s", e.Schema, first.Path, first.Message)
	}
	if n := len(e.Issues) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func compileAll() error {
	compileOnce.Do(func() {
		entries, err := files.ReadDir("schemas")
		if err != nil {
			compileErr = fmt.Errorf("reading embedded schemas: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		var names []string
		for _, e := range entries {
			data, err := files.ReadFile("schemas/" + e.Name())
			if err != nil {
				compileErr = fmt.Errorf("reading schema %s: %w", e.Name(), err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshaling schema %s: %w", e.Name(), err)
				return
			}
			if err := c.AddResource(e.Name(), doc); err != nil {
				compileErr = fmt.Errorf("adding schema resource %s: %w", e.Name(), err)
				return
			}
			names = append(names, e.Name())
		}

		compiled = make(map[string]*jsonschema.Schema, len(names))
		for _, file := range names {
			sch, err := c.Compile(file)
			if err != nil {
				compileErr = fmt.Errorf("compiling schema %s: %w", file, err)
				return
			}
			compiled[strings.TrimSuffix(file, ".schema.json")] = sch
		}
	})
	return compileErr
}

// Validate checks a JSON document against the named schema. It returns a
// *ValidationError when the document does not match, and a plain error when
// the document is not JSON or the schema is unknown.
func Validate(name string, data []byte) error {
	if err := compileAll(); err != nil {
		return err
	}
	sch, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing %s response: %w", name, err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("validating %s response: %w", name, err)
	}
	return &ValidationError{Schema: name, Issues: extractIssues(ve)}
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
func extractIssues(ve *jsonschema.ValidationError) []Issue {
	var issues []Issue
	collect(ve, &issues)
	if len(issues) == 0 {
		return []Issue{{Message: ve.Error()}}
	}
	return dedupe(issues)
}

func collect(ve *jsonschema.ValidationError, issues *[]Issue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collect(cause, issues)
		}
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	keyword := ""
	msg := ""
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		msg = ve.ErrorKind.LocalizedString(printer)
	}

	// Container keywords carry no information of their own.
	if keyword == "allOf" || keyword == "$ref" || keyword == "" {
		return
	}

	*issues = append(*issues, Issue{Path: path, Message: msg, Keyword: keyword})
}

func dedupe(issues []Issue) []Issue {
	seen := make(map[string]bool)
	var out []Issue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			out = append(out, issue)
		}
	}
	return out
}
