// Package intake validates CRM submissions against embedded CUE schemas and
// normalizes their text.
package intake

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/PratikDhanave/intake-edge/internal/models"
)

//go:embed intake.cue
var schemaSrc string

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Field == "" {
			parts[i] = f.Message
			continue
		}
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Validator holds the compiled schemas. cue values are not safe for
// concurrent use, so calls are serialized.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("intake.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile intake schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Ticket validates and normalizes a ticket body.
func (v *Validator) Ticket(body []byte) (models.Ticket, error) {
	var t models.Ticket
	if err := v.check("#Ticket", body, &t); err != nil {
		return models.Ticket{}, err
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}
	t.Status = "open"
	return t, nil
}

// Lead validates and normalizes a lead body.
func (v *Validator) Lead(body []byte) (models.Lead, error) {
	var l models.Lead
	err := v.check("#Lead", body, &l)
	return l, err
}

// Contact validates and normalizes a contact body.
func (v *Validator) Contact(body []byte) (models.Contact, error) {
	var c models.Contact
	err := v.check("#Contact", body, &c)
	return c, err
}

func (v *Validator) check(def string, body []byte, out any) error {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return &ValidationError{Fields: []FieldError{{Message: "body must be a JSON object"}}}
	}
	Normalize(doc)

	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.schema.LookupPath(cue.ParsePath(def)).Unify(v.ctx.Encode(doc))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	if err := val.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", def, err)
	}
	return nil
}

func toValidationError(err error) *ValidationError {
	seen := map[string]bool{}
	var fields []FieldError
	for _, e := range cueerrors.Errors(err) {
		field := fieldPath(e.Path())
		if seen[field] {
			continue
		}
		seen[field] = true

		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		switch {
		case strings.Contains(msg, "incomplete value"):
			msg = "is required"
		case strings.Contains(msg, "not allowed"):
			msg = "is not a known field"
		default:
			msg = "is invalid"
		}
		fields = append(fields, FieldError{Field: field, Message: msg})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}

// fieldPath drops definition selectors such as #Ticket from a cue path.
func fieldPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}

// Normalize trims and NFC-normalizes every string in doc, in place.
func Normalize(doc map[string]any) {
	for k, val := range doc {
		doc[k] = normalizeValue(val)
	}
}

func normalizeValue(val any) any {
	switch x := val.(type) {
	case string:
		return norm.NFC.String(strings.TrimSpace(x))
	case map[string]any:
		Normalize(x)
		return x
	case []any:
		for i := range x {
			x[i] = normalizeValue(x[i])
		}
		return x
	default:
		return val
	}
}
