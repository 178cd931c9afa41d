package cms

import (
	"fmt"

	"golang.org/x/text/language"
)

// Language is an installed content language. Explicit per-language field
// variants are recorded in the audit log under "data" + the language id.
type Language struct {
	ID  int64
	Tag language.Tag
}

// Languages is the language registry. An empty registry means the
// platform runs without multi-language support; adding a language flips
// the capability on for the whole run.
type Languages struct {
	byTag  map[string]*Language
	list   []*Language
	nextID int64
}

func newLanguages() *Languages {
	return &Languages{
		byTag:  make(map[string]*Language),
		nextID: 1012,
	}
}

// Add installs a language by BCP 47 tag ("fi", "de", "pt-BR").
// Malformed tags are a precondition failure.
func (l *Languages) Add(tag string) (*Language, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid language tag %q: %w", tag, err)
	}
	key := parsed.String()
	if _, exists := l.byTag[key]; exists {
		return nil, fmt.Errorf("language %q already installed", key)
	}
	lang := &Language{ID: l.nextID, Tag: parsed}
	l.nextID++
	l.byTag[key] = lang
	l.list = append(l.list, lang)
	return lang, nil
}

// Get returns an installed language by tag.
func (l *Languages) Get(tag string) (*Language, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid language tag %q: %w", tag, err)
	}
	lang, ok := l.byTag[parsed.String()]
	if !ok {
		return nil, fmt.Errorf("language %q not installed", parsed.String())
	}
	return lang, nil
}

// All returns installed languages in installation order.
func (l *Languages) All() []*Language { return l.list }

// Supported reports whether multi-language support is active.
func (l *Languages) Supported() bool { return len(l.list) > 0 }
