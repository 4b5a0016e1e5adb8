// Package validation holds the accumulating issue list produced while checking a
// package before anything is written to disk or the registry.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glorpus-work/extpack/pkg/errutils"
)

// Code identifies the kind of a validation issue.
type Code string

const (
	CodeManifestMissing   Code = "manifest.missing"
	CodeManifestMalformed Code = "manifest.malformed"
	CodeManifestSchema    Code = "manifest.schema"
	CodeManifestPath      Code = "manifest.path"
	CodeDuplicateID       Code = "manifest.duplicate-id"
	CodeCompatMin         Code = "compat.min"
	CodeCompatMax         Code = "compat.max"
	CodeCompatInvalid     Code = "compat.invalid"
	CodeArchiveMissing    Code = "archive.missing"
	CodeHookMissing       Code = "hook.missing"
	CodeModuleDowngrade   Code = "module.downgrade"
	CodeModuleVersion     Code = "module.version"
)

// Issue is a single validation finding.
type Issue struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
	Component string `json:"component,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Code))
	if i.Component != "" {
		b.WriteString(" [")
		b.WriteString(i.Component)
		b.WriteString("]")
	}
	if i.Path != "" {
		b.WriteString(" ")
		b.WriteString(i.Path)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return b.String()
}

// Result accumulates issues. The zero value is an empty, valid result.
type Result struct {
	Issues []Issue `json:"issues"`
}

// Add appends an issue.
func (r *Result) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Addf appends an issue with a formatted message.
func (r *Result) Addf(code Code, format string, args ...interface{}) {
	r.Add(Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all issues of other.
func (r *Result) Merge(other Result) {
	r.Issues = append(r.Issues, other.Issues...)
}

// Valid reports whether no issue has been recorded.
func (r Result) Valid() bool {
	return len(r.Issues) == 0
}

// Has reports whether an issue with the given code was recorded.
func (r Result) Has(code Code) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the distinct codes of all recorded issues, sorted.
func (r Result) Codes() []Code {
	seen := make(map[Code]struct{}, len(r.Issues))
	codes := make([]Code, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if _, ok := seen[issue.Code]; ok {
			continue
		}
		seen[issue.Code] = struct{}{}
		codes = append(codes, issue.Code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Err returns nil for a valid result and a *Error wrapping errutils.ErrValidation otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	issues := make([]Issue, len(r.Issues))
	copy(issues, r.Issues)
	return &Error{Issues: issues}
}

// Error carries the issues of an invalid result.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("%s: %s", errutils.ErrValidation, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return errutils.ErrValidation
}
