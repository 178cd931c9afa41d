package cms

import (
	"io"
	"log/slog"
	"time"
)

// Clock supplies the platform's notion of now. Harness runs install a
// deterministic clock so snapshot instants land between saves without
// real-time pauses.
type Clock interface {
	Now() time.Time
}

// realClock is the default production clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Platform bundles the platform services behind named accessors.
// Bootstrap is the single entry point; everything else hangs off it.
type Platform struct {
	fields    *Fields
	templates *Templates
	pages     *Pages
	users     *Users
	modules   *Modules
	languages *Languages
	clock     Clock
	logger    *slog.Logger
}

// Option configures a Platform during Bootstrap.
type Option func(*Platform)

// WithClock replaces the real-time clock.
func WithClock(c Clock) Option {
	return func(p *Platform) { p.clock = c }
}

// WithLogger replaces the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) { p.logger = l }
}

// Bootstrap initializes a fresh platform: empty field/template registries,
// a guest user as the acting user, and a root page to parent content under.
func Bootstrap(opts ...Option) *Platform {
	p := &Platform{
		clock:  realClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.fields = newFields()
	p.templates = newTemplates(p.fields)
	p.users = newUsers()
	p.languages = newLanguages()
	p.modules = newModules()
	p.pages = newPages(p)

	return p
}

// Fields returns the field registry.
func (p *Platform) Fields() *Fields { return p.fields }

// Templates returns the template registry.
func (p *Platform) Templates() *Templates { return p.templates }

// Pages returns the content store.
func (p *Platform) Pages() *Pages { return p.pages }

// Users returns the user registry.
func (p *Platform) Users() *Users { return p.users }

// Modules returns the module registry.
func (p *Platform) Modules() *Modules { return p.modules }

// Languages returns the language registry.
func (p *Platform) Languages() *Languages { return p.languages }

// Clock returns the platform clock.
func (p *Platform) Clock() Clock { return p.clock }

// Logger returns the platform logger.
func (p *Platform) Logger() *slog.Logger { return p.logger }
