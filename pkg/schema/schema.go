package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema describes a tool input type.
type Schema struct {
	RawSchema *jsonschema.Schema
	// Parameters represents the function parameters definition.
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type.
func New(t reflect.Type) (*Schema, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if s, ok := cache[t]; ok {
		return s, nil
	}

	raw := JSONSchema(t)
	s := &Schema{
		RawSchema:  raw,
		Parameters: ToFunctionSchema(raw),
	}
	cache[t] = s

	return s, nil
}

func (s *Schema) String() string {
	js, _ := json.MarshalIndent(s.Parameters, "", "\t")
	return string(js)
}

// ToFunctionSchema flattens a reflected schema into the object schema
// expected as a function parameters definition.
func ToFunctionSchema(tSchema *jsonschema.Schema) *jsonschema.Schema {
	refID := strings.TrimPrefix(tSchema.Ref, "#/$defs/")

	defs := make(map[string]*jsonschema.Schema)
	root := tSchema

	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}

	resolveRefs(res.Properties, defs)

	return res
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) {
	if props == nil {
		return
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			name := strings.TrimPrefix(child.Ref, "#/$defs/")
			if def, ok := defs[name]; ok {
				pair.Value = def
			}
		}
		if child.Properties != nil {
			resolveRefs(child.Properties, defs)
		}
		if child.Items != nil && child.Items.Ref != "" {
			name := strings.TrimPrefix(child.Items.Ref, "#/$defs/")
			if def, ok := defs[name]; ok {
				child.Items = def
			}
		}
	}
}

// JSONSchema returns the json schema of the given type.
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	// VS Code does not support the jsonschema version 2020-12
	jsonschema.Version = "http://json-schema.org/draft-07/schema#"

	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = true
	r.AllowAdditionalProperties = true

	// Struct names can collide across packages, which breaks $ref naming.
	// Disambiguate by hashing the full package path into the name.
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}

// FromAny creates a json schema from any JSON-marshalable value.
func FromAny(t any) (*jsonschema.Schema, error) {
	js, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	schema := &jsonschema.Schema{}
	err = json.Unmarshal(js, schema)
	if err != nil {
		return nil, err
	}
	return schema, nil
}
