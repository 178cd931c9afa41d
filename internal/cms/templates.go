package cms

import "fmt"

// Template is a content type: a named set of fields a page may carry.
type Template struct {
	ID     int64
	Name   string
	fields map[string]*Field
	order  []string
}

// HasField reports whether the template carries the named field.
func (t *Template) HasField(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// Field returns the named field of the template.
func (t *Template) Field(name string) (*Field, error) {
	field, ok := t.fields[name]
	if !ok {
		return nil, fmt.Errorf("template %q has no field %q", t.Name, name)
	}
	return field, nil
}

// FieldList returns the template's fields in registration order.
func (t *Template) FieldList() []*Field {
	out := make([]*Field, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.fields[name])
	}
	return out
}

// Templates is the template registry.
type Templates struct {
	fields *Fields
	byName map[string]*Template
	nextID int64
}

func newTemplates(fields *Fields) *Templates {
	return &Templates{
		fields: fields,
		byName: make(map[string]*Template),
		nextID: 29,
	}
}

// Add registers a template over already-registered fields.
// Unknown field names are a precondition failure.
func (t *Templates) Add(name string, fieldNames ...string) (*Template, error) {
	if name == "" {
		return nil, fmt.Errorf("template name must not be empty")
	}
	if _, exists := t.byName[name]; exists {
		return nil, fmt.Errorf("template %q already exists", name)
	}

	tpl := &Template{
		ID:     t.nextID,
		Name:   name,
		fields: make(map[string]*Field, len(fieldNames)),
	}
	for _, fn := range fieldNames {
		field, err := t.fields.Get(fn)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		tpl.fields[fn] = field
		tpl.order = append(tpl.order, fn)
	}

	t.nextID++
	t.byName[name] = tpl
	return tpl, nil
}

// Get returns a template by name.
func (t *Templates) Get(name string) (*Template, error) {
	tpl, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	return tpl, nil
}
