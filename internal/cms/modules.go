package cms

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotInstalled is returned for operations requiring an installed module.
var ErrNotInstalled = errors.New("module not installed")

// ErrAlreadyInstalled is returned when installing an installed module.
var ErrAlreadyInstalled = errors.New("module already installed")

// ModuleConfig enumerates what a tracking module should capture: template
// names to track and field names to track.
type ModuleConfig struct {
	Templates []string
	Fields    []string
}

// Module is the lifecycle contract a platform module implements.
type Module interface {
	Name() string
	Install(ctx context.Context) error
	Uninstall(ctx context.Context) error
	Installed(ctx context.Context) (bool, error)
}

// Configurable is implemented by modules that accept configuration.
type Configurable interface {
	SaveConfig(ctx context.Context, cfg ModuleConfig) error
}

// Modules is the module registry and lifecycle driver.
type Modules struct {
	byName map[string]Module
}

func newModules() *Modules {
	return &Modules{byName: make(map[string]Module)}
}

// Register makes a module known to the platform without installing it.
func (m *Modules) Register(mod Module) error {
	name := mod.Name()
	if name == "" {
		return fmt.Errorf("module name must not be empty")
	}
	if _, exists := m.byName[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}
	m.byName[name] = mod
	return nil
}

// Get returns a registered module.
func (m *Modules) Get(name string) (Module, error) {
	mod, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}
	return mod, nil
}

// IsInstallable reports whether the module is registered and not yet
// installed.
func (m *Modules) IsInstallable(ctx context.Context, name string) (bool, error) {
	mod, ok := m.byName[name]
	if !ok {
		return false, nil
	}
	installed, err := mod.Installed(ctx)
	if err != nil {
		return false, fmt.Errorf("module %q: %w", name, err)
	}
	return !installed, nil
}

// Install installs a registered module. Installing twice is an error.
func (m *Modules) Install(ctx context.Context, name string) error {
	mod, err := m.Get(name)
	if err != nil {
		return err
	}
	installed, err := mod.Installed(ctx)
	if err != nil {
		return fmt.Errorf("install %q: %w", name, err)
	}
	if installed {
		return fmt.Errorf("install %q: %w", name, ErrAlreadyInstalled)
	}
	if err := mod.Install(ctx); err != nil {
		return fmt.Errorf("install %q: %w", name, err)
	}
	return nil
}

// IsInstalled reports whether the module is installed.
func (m *Modules) IsInstalled(ctx context.Context, name string) (bool, error) {
	mod, err := m.Get(name)
	if err != nil {
		return false, err
	}
	return mod.Installed(ctx)
}

// IsUninstallable reports whether the module is currently installed.
func (m *Modules) IsUninstallable(ctx context.Context, name string) (bool, error) {
	mod, ok := m.byName[name]
	if !ok {
		return false, nil
	}
	return mod.Installed(ctx)
}

// Uninstall removes an installed module. Uninstalling a module that is
// not installed is an error.
func (m *Modules) Uninstall(ctx context.Context, name string) error {
	mod, err := m.Get(name)
	if err != nil {
		return err
	}
	installed, err := mod.Installed(ctx)
	if err != nil {
		return fmt.Errorf("uninstall %q: %w", name, err)
	}
	if !installed {
		return fmt.Errorf("uninstall %q: %w", name, ErrNotInstalled)
	}
	if err := mod.Uninstall(ctx); err != nil {
		return fmt.Errorf("uninstall %q: %w", name, err)
	}
	return nil
}

// SaveConfig pushes configuration to an installed, configurable module.
func (m *Modules) SaveConfig(ctx context.Context, name string, cfg ModuleConfig) error {
	mod, err := m.Get(name)
	if err != nil {
		return err
	}
	installed, err := mod.Installed(ctx)
	if err != nil {
		return fmt.Errorf("configure %q: %w", name, err)
	}
	if !installed {
		return fmt.Errorf("configure %q: %w", name, ErrNotInstalled)
	}
	c, ok := mod.(Configurable)
	if !ok {
		return fmt.Errorf("module %q does not accept configuration", name)
	}
	if err := c.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("configure %q: %w", name, err)
	}
	return nil
}
