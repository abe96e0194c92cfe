package collection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"loregraph/internal/services"
)

const (
	categoriesKey = "categories"
	quizzesKey    = "quizzes"
)

// Decode parses a collection document.
func Decode(name string, data []byte) (*Collection, error) {
	if !gjson.ValidBytes(data) {
		return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", "document is not valid JSON", nil)
	}
	switch LayoutFor(name) {
	case LayoutCategorized:
		return decodeCategorized(name, data)
	default:
		return decodeArray(name, data)
	}
}

func decodeArray(name string, data []byte) (*Collection, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", "document is not an array", nil)
	}
	entities := make([]Entity, 0, len(doc.Array()))
	var failure error
	doc.ForEach(func(_, value gjson.Result) bool {
		entity, err := newEntity(name, 0, []byte(value.Raw))
		if err != nil {
			failure = err
			return false
		}
		entities = append(entities, entity)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return New(name, entities)
}

func decodeCategorized(name string, data []byte) (*Collection, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", "document is not an object", nil)
	}

	c, err := New(name, nil)
	if err != nil {
		return nil, err
	}
	c.document = bytes.Clone(data)

	categories := doc.Get(categoriesKey)
	if !categories.Exists() {
		return c, nil
	}
	if !categories.IsArray() {
		return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", "categories is not an array", nil)
	}

	for group, category := range categories.Array() {
		if !category.IsObject() {
			return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", fmt.Sprintf("category %d is not an object", group), nil)
		}
		records := category.Get(quizzesKey)
		c.categories = append(c.categories, records.Exists())
		if !records.Exists() || records.Type == gjson.Null {
			continue
		}
		if !records.IsArray() {
			return nil, services.Wrap(services.ErrMalformedRecord, name, "decode", fmt.Sprintf("category %d quizzes is not an array", group), nil)
		}
		for _, record := range records.Array() {
			entity, err := newEntity(name, group, []byte(record.Raw))
			if err != nil {
				return nil, err
			}
			if err := c.add(entity); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Encode renders a collection as 2-space indented JSON with a trailing newline.
func Encode(c *Collection) ([]byte, error) {
	switch c.Layout {
	case LayoutCategorized:
		return encodeCategorized(c)
	default:
		return indent(c.Name, joinArray(c.entities))
	}
}

func encodeCategorized(c *Collection) ([]byte, error) {
	if len(c.categories) == 0 && !gjson.GetBytes(c.document, categoriesKey).Exists() {
		// Nothing was loaded from this document; hand it back untouched.
		return bytes.Clone(c.document), nil
	}

	groups := make([][]Entity, len(c.categories))
	for _, entity := range c.entities {
		if entity.Group < 0 || entity.Group >= len(groups) {
			return nil, fmt.Errorf("%s: record %q has no category", c.Name, entity.ID)
		}
		groups[entity.Group] = append(groups[entity.Group], entity)
	}

	doc := bytes.Clone(c.document)
	for group, hadRecords := range c.categories {
		if !hadRecords && len(groups[group]) == 0 {
			continue
		}
		var err error
		path := fmt.Sprintf("%s.%d.%s", categoriesKey, group, quizzesKey)
		doc, err = sjson.SetRawBytes(doc, path, joinArray(groups[group]))
		if err != nil {
			return nil, services.Wrap(services.ErrIO, c.Name, "encode", "rebuild category", err)
		}
	}
	return indent(c.Name, doc)
}

func joinArray(entities []Entity) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, entity := range entities {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(entity.raw)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func indent(name string, data []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, services.Wrap(services.ErrIO, name, "encode", "indent document", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
