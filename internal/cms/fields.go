package cms

import (
	"fmt"
	"sort"
)

// Field is a text-bearing field definition.
type Field struct {
	ID   int64
	Name string
}

// Fields is the field registry.
type Fields struct {
	byName map[string]*Field
	nextID int64
}

func newFields() *Fields {
	return &Fields{
		byName: make(map[string]*Field),
		nextID: 76, // leave room below for system fields
	}
}

// Add registers a new field. The id is assigned by the registry.
func (f *Fields) Add(name string) (*Field, error) {
	if name == "" {
		return nil, fmt.Errorf("field name must not be empty")
	}
	if _, exists := f.byName[name]; exists {
		return nil, fmt.Errorf("field %q already exists", name)
	}
	field := &Field{ID: f.nextID, Name: name}
	f.nextID++
	f.byName[name] = field
	return field, nil
}

// Get returns a field by name.
func (f *Fields) Get(name string) (*Field, error) {
	field, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}
	return field, nil
}

// Names returns all registered field names, sorted.
func (f *Fields) Names() []string {
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
