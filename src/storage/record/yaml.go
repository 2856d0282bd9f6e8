package record

import (
	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type yamlField struct {
	Name    string    `yaml:"name"`
	Type    FieldType `yaml:"type"`
	Width   int       `yaml:"width,omitempty"`
	Aliases []string  `yaml:"aliases,omitempty"`
}

type yamlSchema struct {
	Key    string      `yaml:"key"`
	Fields []yamlField `yaml:"fields"`
}

// ParseSchema reads a schema definition of the form
//
//	key: id
//	fields:
//	  - {name: id, type: int32}
//	  - {name: name, type: text, width: 30, aliases: [Producto]}
//
// A date field without a width gets DefaultDateWidth.
func ParseSchema(data []byte) (Schema, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, errors.Wrap(err, "unmarshal schema")
	}

	s := Schema{
		Fields: make([]Field, 0, len(doc.Fields)),
		Key:    -1,
	}
	for i, f := range doc.Fields {
		if f.Type == FieldTypeDate && f.Width == 0 {
			f.Width = DefaultDateWidth
		}
		s.Fields = append(s.Fields, Field{Name: f.Name, Type: f.Type, Width: f.Width, Aliases: f.Aliases})
		if f.Name == doc.Key {
			s.Key = i
		}
	}
	if doc.Key == "" {
		s.Key = 0
	}
	if s.Key < 0 {
		return Schema{}, errors.Wrapf(ErrInvalidSchema, "key field %q is not declared", doc.Key)
	}

	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func LoadSchema(fs afero.Fs, path string) (Schema, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Schema{}, errors.Wrapf(err, "read schema file %s", path)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return Schema{}, errors.Wrapf(err, "schema file %s", path)
	}
	return s, nil
}

// MarshalSchema renders s in the form ParseSchema reads.
func MarshalSchema(s Schema) ([]byte, error) {
	doc := yamlSchema{
		Key:    s.Fields[s.Key].Name,
		Fields: make([]yamlField, 0, len(s.Fields)),
	}
	for _, f := range s.Fields {
		doc.Fields = append(doc.Fields, yamlField{
			Name:    f.Name,
			Type:    f.Type,
			Width:   f.Width,
			Aliases: f.Aliases,
		})
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	return data, nil
}
