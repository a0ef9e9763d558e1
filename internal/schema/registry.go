package schema

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ppiankov/casestrength/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed questions/*.yaml
var builtin embed.FS

// ErrUnknownNoticeType is returned when no schema is registered for a notice type
var ErrUnknownNoticeType = errors.New("unknown notice type")

// Registry serves validated schemas by notice type.
// It is immutable after construction, so concurrent reads need no locking.
type Registry struct {
	schemas map[model.NoticeType]Schema
}

// NewRegistry validates every schema and builds a registry.
// Any invalid or duplicate schema fails the whole registry.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[model.NoticeType]Schema, len(schemas))}

	var errs []error
	for _, s := range schemas {
		valid, err := Validate(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.schemas[valid.NoticeType]; dup {
			errs = append(errs, &ValidationError{
				NoticeType: valid.NoticeType,
				Problems:   []string{"registered more than once"},
			})
			continue
		}
		r.schemas[valid.NoticeType] = valid
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(r.schemas) == 0 {
		return nil, fmt.Errorf("%w: no schemas registered", ErrInvalidSchema)
	}

	return r, nil
}

// LoadBuiltin loads the schemas compiled into the binary
func LoadBuiltin() (*Registry, error) {
	sub, err := fs.Sub(builtin, "questions")
	if err != nil {
		return nil, fmt.Errorf("open builtin schemas: %w", err)
	}
	return LoadFS(sub)
}

// MustLoadBuiltin loads the built-in schemas and panics if any is invalid
func MustLoadBuiltin() *Registry {
	r, err := LoadBuiltin()
	if err != nil {
		panic(fmt.Sprintf("builtin question schemas: %v", err))
	}
	return r
}

// LoadDir loads every *.yaml / *.yml file in dir
func LoadDir(dir string) (*Registry, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("schema dir: %w", err)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS loads every *.yaml / *.yml file at the root of fsys
func LoadFS(fsys fs.FS) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	var schemas []Schema
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		s, err := Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Name(), err)
		}
		if _, err := Validate(s); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Source = entry.Name()
			}
			return nil, err
		}
		schemas = append(schemas, s)
	}

	return NewRegistry(schemas...)
}

// Decode parses one YAML schema document, rejecting unknown fields
func Decode(r io.Reader) (Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// SchemaFor returns a deep copy of the schema for a notice type
func (r *Registry) SchemaFor(t model.NoticeType) (Schema, error) {
	s, ok := r.schemas[t]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownNoticeType, t)
	}
	return s.Clone(), nil
}

// NoticeTypes lists the registered notice types in sorted order
func (r *Registry) NoticeTypes() []model.NoticeType {
	types := make([]model.NoticeType, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Has reports whether a schema is registered for t
func (r *Registry) Has(t model.NoticeType) bool {
	_, ok := r.schemas[t]
	return ok
}
