package cms

import "fmt"

// Status flags a page can carry. A page with no flags is published.
type Status uint8

const (
	// StatusUnpublished marks a page hidden from output.
	StatusUnpublished Status = 1 << iota
	// StatusTrashed marks a page moved to the trash.
	StatusTrashed
)

// Value is one field's stored value: a default plus optional explicit
// per-language variants keyed by language id.
type Value struct {
	Default  string
	Variants map[int64]string
}

func (v Value) clone() Value {
	out := Value{Default: v.Default}
	if v.Variants != nil {
		out.Variants = make(map[int64]string, len(v.Variants))
		for id, s := range v.Variants {
			out.Variants[id] = s
		}
	}
	return out
}

// equal reports whether two values are identical including variants.
func (v Value) equal(other Value) bool {
	if v.Default != other.Default || len(v.Variants) != len(other.Variants) {
		return false
	}
	for id, s := range v.Variants {
		if other.Variants[id] != s {
			return false
		}
	}
	return true
}

// FieldChange describes one pending field mutation observed at save time.
type FieldChange struct {
	Field *Field
	Old   Value
	New   Value
}

// Page is a content item. Mutations accumulate on the object and are
// persisted - and announced to hooks - only by an explicit Save.
type Page struct {
	ID       int64
	Name     string
	Template *Template

	parentID int64
	status   Status
	values   map[string]Value

	pages *Pages

	// pending state, cleared on Save
	changedOrder []string
	changedOld   map[string]Value
	movedFrom    *int64

	// parent before trashing, for Restore
	restoreParent int64
}

// SetField sets the default value of a field by name.
// The field must exist on the page's template.
func (p *Page) SetField(name, value string) error {
	cur, err := p.fieldForWrite(name)
	if err != nil {
		return err
	}
	cur.Default = value
	p.values[name] = cur
	return nil
}

// SetFieldVariant sets an explicit language variant of a field.
func (p *Page) SetFieldVariant(name string, lang *Language, value string) error {
	if lang == nil {
		return fmt.Errorf("page %d: nil language", p.ID)
	}
	cur, err := p.fieldForWrite(name)
	if err != nil {
		return err
	}
	if cur.Variants == nil {
		cur.Variants = make(map[int64]string)
	}
	cur.Variants[lang.ID] = value
	p.values[name] = cur
	return nil
}

// fieldForWrite validates the field, records the pre-change value once,
// and returns a mutable copy of the current value.
func (p *Page) fieldForWrite(name string) (Value, error) {
	if p.Template == nil {
		return Value{}, fmt.Errorf("page %d has no template", p.ID)
	}
	if !p.Template.HasField(name) {
		return Value{}, fmt.Errorf("page %d: template %q has no field %q", p.ID, p.Template.Name, name)
	}
	if _, pending := p.changedOld[name]; !pending {
		p.changedOld[name] = p.values[name].clone()
		p.changedOrder = append(p.changedOrder, name)
	}
	return p.values[name].clone(), nil
}

// FieldValue returns the stored value of a field by name.
func (p *Page) FieldValue(name string) (Value, error) {
	if p.Template == nil || !p.Template.HasField(name) {
		return Value{}, fmt.Errorf("page %d has no field %q", p.ID, name)
	}
	return p.values[name].clone(), nil
}

// ParentID returns the page's current parent.
func (p *Page) ParentID() int64 { return p.parentID }

// AddStatus sets a status flag. Takes effect immediately; the flag change
// itself is not a field change and produces no audit rows.
func (p *Page) AddStatus(s Status) { p.status |= s }

// RemoveStatus clears a status flag.
func (p *Page) RemoveStatus(s Status) { p.status &^= s }

// HasStatus reports whether a flag is set.
func (p *Page) HasStatus(s Status) bool { return p.status&s != 0 }

// Published reports whether the page is live (not unpublished, not trashed).
func (p *Page) Published() bool {
	return p.status&(StatusUnpublished|StatusTrashed) == 0
}

// MoveTo reparents the page. The move is announced to hooks on Save.
func (p *Page) MoveTo(parent *Page) error {
	if parent == nil {
		return fmt.Errorf("page %d: nil move target", p.ID)
	}
	if parent.ID == p.ID {
		return fmt.Errorf("page %d: cannot be its own parent", p.ID)
	}
	if p.movedFrom == nil {
		from := p.parentID
		p.movedFrom = &from
	}
	p.parentID = parent.ID
	return nil
}

// pendingChanges materializes the accumulated field mutations in edit
// order, dropping entries whose value ended up unchanged.
func (p *Page) pendingChanges() []FieldChange {
	var changes []FieldChange
	for _, name := range p.changedOrder {
		old := p.changedOld[name]
		now := p.values[name]
		if old.equal(now) {
			continue // touched but value identical: not a change
		}
		field := p.Template.fields[name]
		changes = append(changes, FieldChange{Field: field, Old: old.clone(), New: now.clone()})
	}
	return changes
}

// clearPending resets change tracking after a successful save.
func (p *Page) clearPending() {
	p.changedOrder = nil
	p.changedOld = make(map[string]Value)
	p.movedFrom = nil
}
