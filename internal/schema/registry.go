package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"claimintake/internal/domain"
)

//go:embed schemas/*.json
var builtin embed.FS

// Schema is a compiled, read-only claim schema for one claim type.
type Schema struct {
	ClaimType domain.ClaimType
	ID        string
	Version   string
	Title     string

	document json.RawMessage
	compiled *gojsonschema.Schema
}

// Document returns a copy of the raw schema document.
func (s *Schema) Document() json.RawMessage {
	out := make(json.RawMessage, len(s.document))
	copy(out, s.document)
	return out
}

// Check runs draft-07 validation of doc against the schema.
func (s *Schema) Check(doc []byte) (*gojsonschema.Result, error) {
	return s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
}

type header struct {
	Title    string `json:"title"`
	ID       string `json:"x-schema-id"`
	Version  string `json:"x-version"`
	Property struct {
		ClaimType struct {
			Enum  []string `json:"enum"`
			Const *string  `json:"const"`
		} `json:"claimType"`
	} `json:"properties"`
}

// Parse compiles a schema document. The claim type it serves is read from
// the document's claimType enum (exactly one value) or const.
func Parse(doc []byte) (*Schema, error) {
	var h header
	if err := json.Unmarshal(doc, &h); err != nil {
		return nil, fmt.Errorf("decoding schema header: %w", err)
	}

	var claimType string
	switch {
	case h.Property.ClaimType.Const != nil:
		claimType = *h.Property.ClaimType.Const
	case len(h.Property.ClaimType.Enum) == 1:
		claimType = h.Property.ClaimType.Enum[0]
	default:
		return nil, errors.New("schema must pin properties.claimType to a single value")
	}
	if claimType == "" {
		return nil, errors.New("schema claimType is empty")
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", claimType, err)
	}

	id := h.ID
	if id == "" {
		id = "claims/" + claimType
	}
	return &Schema{
		ClaimType: domain.ClaimType(claimType),
		ID:        id,
		Version:   h.Version,
		Title:     h.Title,
		document:  json.RawMessage(doc),
		compiled:  compiled,
	}, nil
}

// Registry maps a claim type to its schema. It is populated at start-up and
// read-only afterwards.
type Registry struct {
	schemas map[domain.ClaimType]*Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[domain.ClaimType]*Schema)}
}

// Load returns a registry with the built-in schemas plus every *.json file in
// dir. A file in dir replaces the built-in schema for the same claim type.
func Load(dir string) (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadFS(builtin, "schemas"); err != nil {
		return nil, fmt.Errorf("schema.Load builtin: %w", err)
	}
	if dir != "" {
		if err := r.LoadFS(os.DirFS(dir), "."); err != nil {
			return nil, fmt.Errorf("schema.Load %s: %w", dir, err)
		}
	}
	return r, nil
}

// LoadFS parses and registers every *.json file under root in fsys.
func (r *Registry) LoadFS(fsys fs.FS, root string) error {
	matches, err := fs.Glob(fsys, path.Join(root, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(matches)
	for _, name := range matches {
		doc, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		s, err := Parse(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		r.Register(s)
	}
	return nil
}

// Register adds a schema, replacing any schema for the same claim type.
func (r *Registry) Register(s *Schema) {
	r.schemas[s.ClaimType] = s
}

// GetSchema returns the schema for claimType or ErrUnknownClaimType.
func (r *Registry) GetSchema(claimType domain.ClaimType) (*Schema, error) {
	s, ok := r.schemas[claimType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownClaimType, string(claimType))
	}
	return s, nil
}

// Resolve matches an untrusted claim type value against the registered set.
// Values are compared exactly; nothing is trimmed, upper-cased or defaulted.
func (r *Registry) Resolve(raw string) (domain.ClaimType, error) {
	ct := domain.ClaimType(raw)
	if _, ok := r.schemas[ct]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownClaimType, raw)
	}
	return ct, nil
}

// ClaimTypes returns the registered claim types in sorted order.
func (r *Registry) ClaimTypes() []domain.ClaimType {
	out := make([]domain.ClaimType, 0, len(r.schemas))
	for ct := range r.schemas {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns all registered schemas ordered by claim type.
func (r *Registry) All() []*Schema {
	types := r.ClaimTypes()
	out := make([]*Schema, 0, len(types))
	for _, ct := range types {
		out = append(out, r.schemas[ct])
	}
	return out
}
