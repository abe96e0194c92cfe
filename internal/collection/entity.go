package collection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"loregraph/internal/services"
)

// Entity is one record of a collection. The raw object is never mutated in
// place; setters return a new Entity.
type Entity struct {
	ID         string
	Collection string
	// Group is the category index for categorized collections.
	Group int
	raw   []byte
}

func newEntity(collection string, group int, raw []byte) (Entity, error) {
	if !gjson.ValidBytes(raw) {
		return Entity{}, malformed(collection, "", "invalid JSON")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return Entity{}, malformed(collection, "", "record is not an object")
	}
	id := parsed.Get("id")
	if id.Type != gjson.String || id.Str == "" {
		return Entity{}, malformed(collection, "", "record has no string id")
	}
	return Entity{
		ID:         id.Str,
		Collection: collection,
		Group:      group,
		raw:        bytes.Clone(raw),
	}, nil
}

// NewEntity builds an entity from a raw JSON object.
func NewEntity(collection string, raw []byte) (Entity, error) {
	return newEntity(collection, 0, raw)
}

// Raw returns a copy of the record's JSON object.
func (e Entity) Raw() []byte {
	return bytes.Clone(e.raw)
}

// Get returns a field of the record.
func (e Entity) Get(field string) gjson.Result {
	return gjson.GetBytes(e.raw, field)
}

// List reads a list reference field. A missing or null field is an empty list.
func (e Entity) List(field string) ([]string, error) {
	value := e.Get(field)
	if !value.Exists() || value.Type == gjson.Null {
		return nil, nil
	}
	if !value.IsArray() {
		return nil, malformed(e.Collection, e.ID, fmt.Sprintf("field %s is not a list", field))
	}
	elements := value.Array()
	ids := make([]string, 0, len(elements))
	for _, element := range elements {
		if element.Type != gjson.String {
			return nil, malformed(e.Collection, e.ID, fmt.Sprintf("field %s holds a non-string id", field))
		}
		ids = append(ids, element.Str)
	}
	return ids, nil
}

// Scalar reads a single-id reference field. ok is false when the field is
// missing, null, or the empty string.
func (e Entity) Scalar(field string) (string, bool, error) {
	value := e.Get(field)
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return "", false, nil
	case value.Type != gjson.String:
		return "", false, malformed(e.Collection, e.ID, fmt.Sprintf("field %s is not a string id", field))
	case value.Str == "":
		return "", false, nil
	default:
		return value.Str, true, nil
	}
}

// WithList returns a copy of the entity with field set to ids.
func (e Entity) WithList(field string, ids []string) (Entity, error) {
	encoded, err := encodeStrings(ids)
	if err != nil {
		return Entity{}, err
	}
	return e.withRaw(field, encoded)
}

// WithScalar returns a copy of the entity with field set to id.
func (e Entity) WithScalar(field, id string) (Entity, error) {
	encoded, err := encodeString(id)
	if err != nil {
		return Entity{}, err
	}
	return e.withRaw(field, encoded)
}

// WithNull returns a copy of the entity with field set to null.
func (e Entity) WithNull(field string) (Entity, error) {
	return e.withRaw(field, []byte("null"))
}

func (e Entity) withRaw(field string, value []byte) (Entity, error) {
	updated, err := sjson.SetRawBytes(bytes.Clone(e.raw), field, value)
	if err != nil {
		return Entity{}, services.Wrap(services.ErrMalformedRecord, e.Collection, e.ID, "set "+field, err)
	}
	e.raw = updated
	return e, nil
}

func encodeStrings(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return marshalNoEscape(ids)
}

func encodeString(id string) ([]byte, error) {
	return marshalNoEscape(id)
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func malformed(collection, id, message string) error {
	operation := "decode"
	if id != "" {
		operation = fmt.Sprintf("record %q", id)
	}
	return services.Wrap(services.ErrMalformedRecord, collection, operation, message, nil)
}
