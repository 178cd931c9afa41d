package revision

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mkoski/fieldtrail/internal/cms"
	"github.com/mkoski/fieldtrail/internal/store"
)

// defaultProperty is the property name the default field value is
// recorded under. Explicit language variants append the language id.
const defaultProperty = "data"

// onSaved is the capture hook. One event per changed tracked field, in
// edit order. Saves of untracked templates, untracked fields, and saves
// with no value change (status flips, moves, trash, restore) are silent.
func (m *Module) onSaved(ctx context.Context, page *cms.Page, changes []cms.FieldChange) error {
	installed, err := m.Installed(ctx)
	if err != nil {
		return fmt.Errorf("revision capture: %w", err)
	}
	if !installed || !m.tracksTemplate(page.Template) {
		return nil
	}

	user := m.platform.Users().Current()
	now := m.platform.Clock().Now()

	for _, change := range changes {
		if !m.tracksField(change.Field.Name) {
			continue
		}
		ev := store.Event{
			PageID:   page.ID,
			FieldID:  change.Field.ID,
			UserID:   user.ID,
			UserName: user.Name,
			Time:     now,
			Payload:  m.payloadFor(change.New),
		}
		if _, err := m.store.WriteEvent(ctx, ev); err != nil {
			return fmt.Errorf("revision capture: field %q: %w", change.Field.Name, err)
		}
	}
	return nil
}

// onDeleted cascades history deletion with the subject. Fired per page,
// so a deleted parent's repeater sub-pages each clear their own rows.
func (m *Module) onDeleted(ctx context.Context, page *cms.Page) error {
	installed, err := m.Installed(ctx)
	if err != nil {
		return fmt.Errorf("revision cascade: %w", err)
	}
	if !installed {
		return nil
	}
	if err := m.store.DeleteForPages(ctx, page.ID); err != nil {
		return fmt.Errorf("revision cascade: page %d: %w", page.ID, err)
	}
	return nil
}

// payloadFor fans a field value out into payload rows: the default value
// first (possibly empty), then one row per explicit language variant in
// language installation order.
func (m *Module) payloadFor(v cms.Value) []store.Property {
	payload := []store.Property{{Property: defaultProperty, Data: v.Default}}
	if len(v.Variants) == 0 {
		return payload
	}
	for _, lang := range m.platform.Languages().All() {
		variant, ok := v.Variants[lang.ID]
		if !ok {
			continue
		}
		payload = append(payload, store.Property{
			Property: variantProperty(lang.ID),
			Data:     variant,
		})
	}
	return payload
}

// variantProperty builds the property name for a language variant.
func variantProperty(langID int64) string {
	return defaultProperty + strconv.FormatInt(langID, 10)
}

// variantLanguage parses a property name back into a language id.
// ok is false for the default property and for foreign property names.
func variantLanguage(property string) (int64, bool) {
	if len(property) <= len(defaultProperty) || property[:len(defaultProperty)] != defaultProperty {
		return 0, false
	}
	id, err := strconv.ParseInt(property[len(defaultProperty):], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
