// Package revision implements the field revision tracking module: a
// platform module that intercepts page saves and records every change to
// a tracked text field into the two-table audit log, reconstructs field
// values as of a past instant, and prunes old history.
package revision

import (
	"context"
	"fmt"

	"github.com/mkoski/fieldtrail/internal/cms"
	"github.com/mkoski/fieldtrail/internal/store"
)

// ModuleName is the name the module registers under.
const ModuleName = "FieldRevisions"

// Module captures tracked field changes into the audit store.
//
// The audit schema is owned by the module: Install creates the tables,
// Uninstall drops them (history included). Hooks are registered at
// construction and stay silent until the module is installed and
// configured.
type Module struct {
	platform *cms.Platform
	store    *store.Store

	templates map[string]bool
	fields    map[string]bool
}

// New wires a module against a platform and an audit store, and registers
// its hooks on the content store.
func New(platform *cms.Platform, st *store.Store) *Module {
	m := &Module{
		platform:  platform,
		store:     st,
		templates: make(map[string]bool),
		fields:    make(map[string]bool),
	}
	platform.Pages().OnSaved(m.onSaved)
	platform.Pages().OnDeleted(m.onDeleted)
	return m
}

// Name implements cms.Module.
func (m *Module) Name() string { return ModuleName }

// Install creates the audit tables.
func (m *Module) Install(ctx context.Context) error {
	if err := m.store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("install %s: %w", ModuleName, err)
	}
	m.platform.Logger().Info("revision module installed")
	return nil
}

// Uninstall drops the audit tables and every recorded revision.
func (m *Module) Uninstall(ctx context.Context) error {
	if err := m.store.DropSchema(ctx); err != nil {
		return fmt.Errorf("uninstall %s: %w", ModuleName, err)
	}
	m.templates = make(map[string]bool)
	m.fields = make(map[string]bool)
	m.platform.Logger().Info("revision module uninstalled")
	return nil
}

// Installed reports whether the audit tables exist. The store, not a
// flag, is the source of truth so a reopened database stays installed.
func (m *Module) Installed(ctx context.Context) (bool, error) {
	return m.store.SchemaInstalled(ctx)
}

// SaveConfig sets which templates and fields are tracked. Every named
// template and field must already exist; a missing one is an environment
// precondition failure.
func (m *Module) SaveConfig(ctx context.Context, cfg cms.ModuleConfig) error {
	templates := make(map[string]bool, len(cfg.Templates))
	for _, name := range cfg.Templates {
		if _, err := m.platform.Templates().Get(name); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		templates[name] = true
	}
	fields := make(map[string]bool, len(cfg.Fields))
	for _, name := range cfg.Fields {
		if _, err := m.platform.Fields().Get(name); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fields[name] = true
	}

	m.templates = templates
	m.fields = fields
	m.platform.Logger().Info("revision module configured",
		"templates", len(templates),
		"fields", len(fields),
	)
	return nil
}

// tracksTemplate reports whether pages of the template are captured.
func (m *Module) tracksTemplate(tpl *cms.Template) bool {
	return tpl != nil && m.templates[tpl.Name]
}

// tracksField reports whether the named field is captured.
func (m *Module) tracksField(name string) bool {
	return m.fields[name]
}
