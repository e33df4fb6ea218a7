package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/aussiebroadwan/authd/pkg/httpx"
	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// schemaCache holds one compiled schema per request type.
var schemaCache sync.Map // reflect.Type -> *jschema.Schema

// GenerateSchema reflects the JSON Schema of a request struct. Fields
// without omitempty are required.
func GenerateSchema(v any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

func compiledSchema(v any) (*jschema.Schema, error) {
	t := reflect.TypeOf(v)
	if sch, ok := schemaCache.Load(t); ok {
		return sch.(*jschema.Schema), nil
	}

	schemaBytes, err := GenerateSchema(v)
	if err != nil {
		return nil, err
	}

	schemaData, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	schemaCache.Store(t, sch)
	return sch, nil
}

// InvalidRequestError is a body that failed schema validation. Fields lists
// the offending JSON properties.
type InvalidRequestError struct {
	Fields []string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

// decode reads the body of r, validates it against the schema of dst and
// unmarshals it into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := httpx.ReadBody(w, r)
	if err != nil {
		return &InvalidRequestError{Reason: err.Error()}
	}

	inst, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &InvalidRequestError{Reason: "Request body is not valid JSON"}
	}

	sch, err := compiledSchema(dst)
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		var ve *jschema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		return &InvalidRequestError{Reason: "Invalid request", Fields: invalidFields(ve)}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &InvalidRequestError{Reason: "Invalid request"}
	}
	return nil
}

// invalidFields names the properties behind the leaf causes of ve.
func invalidFields(ve *jschema.ValidationError) []string {
	var fields []string
	var walk func(*jschema.ValidationError)
	walk = func(e *jschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if req, ok := e.ErrorKind.(*kind.Required); ok {
			fields = append(fields, req.Missing...)
			return
		}
		if len(e.InstanceLocation) > 0 {
			fields = append(fields, strings.Join(e.InstanceLocation, "."))
		}
	}
	walk(ve)

	slices.Sort(fields)
	return slices.Compact(fields)
}
