package revision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkoski/fieldtrail/internal/cms"
)

// ParseTimeRef resolves a snapshot time reference against now.
// Accepted forms:
//   - "" or "now": the current instant
//   - a signed Go duration offset: "-2s", "-1h30m" (also spelled-out
//     units: "-2 seconds", "-5 minutes")
//   - an absolute RFC 3339 timestamp
func ParseTimeRef(ref string, now time.Time) (time.Time, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "now" {
		return now, nil
	}

	if strings.HasPrefix(ref, "-") || strings.HasPrefix(ref, "+") {
		d, err := time.ParseDuration(normalizeUnits(ref))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time offset %q: %w", ref, err)
		}
		return now.Add(d), nil
	}

	t, err := time.Parse(time.RFC3339, ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time reference %q: %w", ref, err)
	}
	return t, nil
}

// normalizeUnits maps spelled-out units onto time.ParseDuration syntax.
func normalizeUnits(ref string) string {
	r := strings.NewReplacer(
		" seconds", "s", " second", "s", " secs", "s", " sec", "s",
		" minutes", "m", " minute", "m", " mins", "m", " min", "m",
		" hours", "h", " hour", "h",
	)
	return strings.ReplaceAll(r.Replace(ref), " ", "")
}

// SnapshotAt reconstructs the page's field values as of the referenced
// instant. For each field of the page's template, the most recent audit
// event at or before the instant supplies the value; a field with no
// history by then keeps its current value (the log only learns about a
// field once it first changes under tracking). Pages of untracked
// templates therefore always come back with their current values.
func (m *Module) SnapshotAt(ctx context.Context, page *cms.Page, ref string) (map[string]cms.Value, error) {
	if page.Template == nil {
		return nil, fmt.Errorf("snapshot: page %d has no template", page.ID)
	}

	at, err := ParseTimeRef(ref, m.platform.Clock().Now())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	out := make(map[string]cms.Value)
	for _, field := range page.Template.FieldList() {
		current, err := page.FieldValue(field.Name)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}

		if !installed || !m.tracksField(field.Name) {
			out[field.Name] = current
			continue
		}

		props, ok, err := m.store.PropertiesAt(ctx, page.ID, field.ID, at)
		if err != nil {
			return nil, fmt.Errorf("snapshot: field %q: %w", field.Name, err)
		}
		if !ok {
			out[field.Name] = current
			continue
		}

		out[field.Name] = valueFromProperties(props)
	}
	return out, nil
}

// valueFromProperties rebuilds a field value from an event payload.
func valueFromProperties(props map[string]string) cms.Value {
	v := cms.Value{Default: props[defaultProperty]}
	for property, data := range props {
		langID, ok := variantLanguage(property)
		if !ok {
			continue
		}
		if v.Variants == nil {
			v.Variants = make(map[int64]string)
		}
		v.Variants[langID] = data
	}
	return v
}
