package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"claimintake/internal/domain"
	"claimintake/internal/schema"
)

// Constraint names reported in violations.
const (
	ConstraintRequired   = "required"
	ConstraintGrouping   = "grouping"
	ConstraintType       = "type"
	ConstraintEnum       = "enum"
	ConstraintFormat     = "format"
	ConstraintMinLength  = "minLength"
	ConstraintMinimum    = "minimum"
	ConstraintAdditional = "additionalProperties"
	ConstraintJSON       = "json"
)

const rootPath = "$"

// Violation is one schema non-conformance.
type Violation struct {
	Path       string          `json:"path"`
	Constraint string          `json:"constraint"`
	Expected   string          `json:"expected"`
	Actual     json.RawMessage `json:"actual"`
	Message    string          `json:"message"`
}

// Result is Valid when it carries no violations.
type Result struct {
	ClaimType     domain.ClaimType `json:"claimType"`
	SchemaID      string           `json:"schemaId"`
	SchemaVersion string           `json:"schemaVersion"`
	Violations    []Violation      `json:"violations"`

	accepted *Accepted
}

// Valid reports whether the claim conformed.
func (r Result) Valid() bool { return len(r.Violations) == 0 && r.accepted != nil }

// Accepted returns the trusted claim of a valid result.
func (r Result) Accepted() (Accepted, bool) {
	if r.accepted == nil {
		return Accepted{}, false
	}
	return *r.accepted, true
}

// Validate checks a candidate against a schema. It never returns an error:
// any problem with the candidate is a violation. The result depends only on
// its inputs, so repeated calls are identical.
func Validate(c Candidate, s *schema.Schema) Result {
	res := Result{
		ClaimType:     s.ClaimType,
		SchemaID:      s.ID,
		SchemaVersion: s.Version,
		Violations:    []Violation{},
	}

	if !json.Valid(c.raw) {
		res.Violations = append(res.Violations, Violation{
			Path:       rootPath,
			Constraint: ConstraintJSON,
			Expected:   "a JSON object",
			Actual:     json.RawMessage("null"),
			Message:    "claim is not valid JSON",
		})
		return res
	}

	out, err := s.Check(c.raw)
	if err != nil {
		res.Violations = append(res.Violations, Violation{
			Path:       rootPath,
			Constraint: ConstraintJSON,
			Expected:   "a JSON object",
			Actual:     json.RawMessage("null"),
			Message:    err.Error(),
		})
		return res
	}

	if !out.Valid() {
		res.Violations = normalize(mapErrors(out.Errors()))
		return res
	}

	var claim domain.Claim
	if err := json.Unmarshal(c.raw, &claim); err != nil {
		res.Violations = append(res.Violations, Violation{
			Path:       rootPath,
			Constraint: ConstraintType,
			Expected:   "claim shape",
			Actual:     json.RawMessage("null"),
			Message:    fmt.Sprintf("claim does not decode: %v", err),
		})
		return res
	}

	// The document-type set is closed regardless of what a loaded schema says.
	var extra []Violation
	check := func(path string, docs []domain.ClaimDocument) {
		for i, d := range docs {
			if !d.Type.Valid() {
				actual, _ := json.Marshal(string(d.Type))
				extra = append(extra, Violation{
					Path:       fmt.Sprintf("%s[%d].type", path, i),
					Constraint: ConstraintEnum,
					Expected:   joinDocumentTypes(),
					Actual:     actual,
					Message:    "unknown document type",
				})
			}
		}
	}
	check("documents", claim.Documents)
	for i, r := range claim.Receipts {
		check(fmt.Sprintf("receipts[%d].documents", i), r.Documents)
	}
	if len(extra) > 0 {
		res.Violations = normalize(extra)
		return res
	}

	res.accepted = &Accepted{
		claim:    claim,
		raw:      c.raw,
		schemaID: s.ID,
		version:  s.Version,
	}
	return res
}

func mapErrors(errs []gojsonschema.ResultError) []Violation {
	out := make([]Violation, 0, len(errs))
	for _, e := range errs {
		parent := contextPath(e.Context())
		details := e.Details()
		v := Violation{
			Path:       parent,
			Constraint: e.Type(),
			Actual:     marshalActual(e.Value()),
			Message:    e.Description(),
		}

		switch e.Type() {
		case "required":
			prop, _ := details["property"].(string)
			v.Path = joinPath(parent, prop)
			v.Constraint = ConstraintRequired
			v.Expected = "present"
			v.Actual = json.RawMessage("null")
		case "missing_dependency":
			dep, _ := details["dependency"].(string)
			v.Path = joinPath(parent, dep)
			v.Constraint = ConstraintGrouping
			v.Expected = "present together with its sibling fields"
			v.Actual = json.RawMessage("null")
		case "additional_property_not_allowed":
			prop, _ := details["property"].(string)
			v.Path = joinPath(parent, prop)
			v.Constraint = ConstraintAdditional
			v.Expected = "absent"
			if m, ok := e.Value().(map[string]interface{}); ok {
				v.Actual = marshalActual(m[prop])
			}
		case "invalid_type":
			v.Constraint = ConstraintType
			v.Expected = fmt.Sprint(details["expected"])
		case "enum", "const":
			v.Constraint = ConstraintEnum
			v.Expected = fmt.Sprint(details["allowed"])
		case "format":
			v.Constraint = ConstraintFormat
			v.Expected = fmt.Sprint(details["format"])
		case "string_gte":
			v.Constraint = ConstraintMinLength
			v.Expected = fmt.Sprintf("length >= %v", details["min"])
		case "number_gte", "number_gt":
			v.Constraint = ConstraintMinimum
			v.Expected = fmt.Sprintf(">= %v", details["min"])
		default:
			v.Expected = strings.TrimSpace(fmt.Sprint(details))
		}
		out = append(out, v)
	}
	return out
}

// normalize sorts violations and drops exact (path, constraint) duplicates,
// which arise when several grouped fields each report the same missing sibling.
func normalize(vs []Violation) []Violation {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		if vs[i].Constraint != vs[j].Constraint {
			return vs[i].Constraint < vs[j].Constraint
		}
		if vs[i].Expected != vs[j].Expected {
			return vs[i].Expected < vs[j].Expected
		}
		return vs[i].Message < vs[j].Message
	})
	out := make([]Violation, 0, len(vs))
	for i, v := range vs {
		if i > 0 && v.Path == vs[i-1].Path && v.Constraint == vs[i-1].Constraint {
			continue
		}
		out = append(out, v)
	}
	return out
}

// contextPath converts "(root).receipts.0.currency" to "receipts[0].currency".
func contextPath(ctx *gojsonschema.JsonContext) string {
	if ctx == nil {
		return rootPath
	}
	parts := strings.Split(ctx.String(), ".")
	var b strings.Builder
	for _, p := range parts {
		if p == "(root)" || p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			b.WriteString("[" + p + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return rootPath
	}
	return b.String()
}

func joinPath(parent, prop string) string {
	if prop == "" {
		return parent
	}
	if parent == rootPath {
		return prop
	}
	if parent == prop || strings.HasSuffix(parent, "."+prop) {
		return parent
	}
	return parent + "." + prop
}

func marshalActual(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

func joinDocumentTypes() string {
	types := domain.AllDocumentTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return "[" + strings.Join(names, " ") + "]"
}
