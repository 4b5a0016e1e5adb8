package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/validation"
	"github.com/glorpus-work/extpack/pkg/version"
)

//go:embed schema/extension.schema.json
var schemaJSON []byte

const schemaURL = "inmemory://extension.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
})

// SchemaJSON returns the embedded manifest schema.
func SchemaJSON() []byte {
	return schemaJSON
}

// Source is the read access the validator needs into a package.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// Validator parses manifests and checks them against the running host version.
type Validator struct {
	hostVersion string
}

// NewValidator creates a Validator for a host running hostVersion.
func NewValidator(hostVersion string) *Validator {
	return &Validator{hostVersion: hostVersion}
}

// ParseAndValidate reads the manifest from src, validates it against the schema and
// checks the compatibility range. Expected failures are reported as issues, never as
// errors. The manifest is nil when it could not be read, parsed or trusted.
func (v *Validator) ParseAndValidate(src Source) (*Manifest, validation.Result) {
	var res validation.Result

	raw, err := src.ReadFile(FileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Add(validation.Issue{
				Code:    validation.CodeManifestMissing,
				Message: fmt.Sprintf("package does not contain %s at its root", FileName),
				Path:    FileName,
			})
			return nil, res
		}
		res.Add(validation.Issue{
			Code:    validation.CodeManifestMalformed,
			Message: fmt.Sprintf("failed to read manifest: %v", err),
			Path:    FileName,
		})
		return nil, res
	}

	m, res := Parse(raw)
	if m == nil {
		return nil, res
	}

	res.Merge(v.CheckCompatibility(m))
	return m, res
}

// CheckCompatibility compares the host version against the manifest's compatibility range.
func (v *Validator) CheckCompatibility(m *Manifest) validation.Result {
	var res validation.Result
	if m.Compatibility == nil {
		return res
	}

	host, err := version.Normalize(v.hostVersion)
	if err != nil {
		res.Addf(validation.CodeCompatInvalid, "host version %q is not a valid version", v.hostVersion)
		return res
	}

	if minVersion := m.Compatibility.MinVersion; minVersion != "" {
		less, err := version.IsLessThan(host, minVersion)
		switch {
		case err != nil:
			res.Addf(validation.CodeCompatInvalid, "minVersion %q is not a valid version pattern", minVersion)
		case less:
			res.Addf(validation.CodeCompatMin,
				"%s requires host version %s or later, but the host is running %s", m.Name, minVersion, host)
		}
	}

	if maxVersion := m.Compatibility.MaxVersion; maxVersion != "" {
		greater, err := version.IsGreaterThan(host, maxVersion)
		switch {
		case err != nil:
			res.Addf(validation.CodeCompatInvalid, "maxVersion %q is not a valid version pattern", maxVersion)
		case greater:
			res.Addf(validation.CodeCompatMax,
				"%s supports host versions up to %s, but the host is running %s", m.Name, maxVersion, host)
		}
	}

	logger.Debug("Checked compatibility", logger.Fields{
		"package": m.Name,
		"host":    host,
		"issues":  len(res.Issues),
	})
	return res
}

// Parse decodes and schema-validates raw manifest bytes without any host checks.
// A schema-invalid manifest is never partially returned.
func Parse(raw []byte) (*Manifest, validation.Result) {
	var res validation.Result

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		res.Add(validation.Issue{
			Code:    validation.CodeManifestMalformed,
			Message: fmt.Sprintf("manifest is not valid JSON: %v", err),
			Path:    FileName,
		})
		return nil, res
	}

	sch, err := compiledSchema()
	if err != nil {
		res.Addf(validation.CodeManifestSchema, "manifest schema unavailable: %v", err)
		return nil, res
	}
	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			res.Issues = append(res.Issues, schemaIssues(ve)...)
		} else {
			res.Addf(validation.CodeManifestSchema, "%v", err)
		}
		return nil, res
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		res.Add(validation.Issue{
			Code:    validation.CodeManifestMalformed,
			Message: fmt.Sprintf("failed to decode manifest: %v", err),
			Path:    FileName,
		})
		return nil, res
	}
	m.raw = append([]byte(nil), raw...)

	res.Merge(checkPaths(&m))
	res.Merge(checkDuplicates(&m))
	if !res.Valid() {
		return nil, res
	}
	return &m, res
}

// LoadInstalled reads the manifest copy kept in an installed component folder.
func LoadInstalled(manifestPath string) (*Manifest, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", manifestPath, errutils.ErrManifestNotFound)
		}
		return nil, errutils.Wrapf(err, "failed to read manifest %s", manifestPath)
	}

	m, res := Parse(raw)
	if m == nil {
		return nil, errutils.Wrapf(res.Err(), "installed manifest %s", manifestPath)
	}
	return m, nil
}

// schemaIssues flattens a validation error tree into its leaves, sorted so that
// identical input always produces identical output.
func schemaIssues(ve *jsonschema.ValidationError) []validation.Issue {
	var leaves []validation.Issue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			leaves = append(leaves, validation.Issue{
				Code:    validation.CodeManifestSchema,
				Message: e.Message,
				Path:    location,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)

	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].Path != leaves[j].Path {
			return leaves[i].Path < leaves[j].Path
		}
		return leaves[i].Message < leaves[j].Message
	})
	return leaves
}

// CheckPath rejects empty, absolute and traversing relative paths.
func CheckPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", errutils.ErrInvalidPath)
	}
	if strings.ContainsAny(p, `\:`) {
		return fmt.Errorf("%w: %q must use forward slashes and no drive letters", errutils.ErrInvalidPath, p)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q must be relative", errutils.ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q contains an empty or traversal segment", errutils.ErrInvalidPath, p)
		}
	}
	return nil
}

func checkPaths(m *Manifest) validation.Result {
	var res validation.Result
	add := func(component, p string, err error) {
		res.Add(validation.Issue{
			Code:      validation.CodeManifestPath,
			Message:   err.Error(),
			Path:      p,
			Component: component,
		})
	}

	folders := make(map[string]struct{}, len(m.Components))
	for _, c := range m.Components {
		if err := CheckPath(c.Folder); err != nil || strings.Contains(c.Folder, "/") {
			if err == nil {
				err = fmt.Errorf("%w: component folder %q must be a single segment", errutils.ErrInvalidPath, c.Folder)
			}
			add(c.Folder, c.Folder, err)
			continue
		}
		key := strings.ToLower(c.Folder)
		if _, dup := folders[key]; dup {
			add(c.Folder, c.Folder, fmt.Errorf("component folder %q is declared more than once", c.Folder))
		}
		folders[key] = struct{}{}

		for _, e := range append(c.Entries(), WalkEntries(c.CleanupItems())...) {
			if err := CheckPath(e.Path); err != nil {
				add(c.Folder, e.Path, err)
			}
		}
		if c.Hooks != nil {
			for _, hook := range []string{c.Hooks.PostInstall, c.Hooks.PreUninstall} {
				if hook == "" {
					continue
				}
				if err := CheckPath(hook); err != nil {
					add(c.Folder, hook, err)
				}
			}
		}
		defs := c.Definitions()
		for _, l := range defs.Layouts {
			if err := CheckPath(l.ViewPath); err != nil {
				add(c.Folder, l.ViewPath, err)
			}
		}
		for _, ct := range defs.Containers {
			if err := CheckPath(ct.ViewPath); err != nil {
				add(c.Folder, ct.ViewPath, err)
			}
		}
	}
	return res
}

func checkDuplicates(m *Manifest) validation.Result {
	var res validation.Result
	seen := make(map[uuid.UUID]string)
	record := func(component string, id uuid.UUID, kind string) {
		if prev, dup := seen[id]; dup {
			res.Add(validation.Issue{
				Code:      validation.CodeDuplicateID,
				Message:   fmt.Sprintf("%s id %s is already used by a %s", kind, id, prev),
				Component: component,
			})
			return
		}
		seen[id] = kind
	}

	for _, c := range m.Components {
		defs := c.Definitions()
		for _, d := range defs.Modules {
			record(c.Folder, d.ID, "module definition")
		}
		for _, d := range defs.Layouts {
			record(c.Folder, d.ID, "layout definition")
		}
		for _, d := range defs.Containers {
			record(c.Folder, d.ID, "container definition")
		}
	}
	return res
}
