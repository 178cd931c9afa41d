package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance scenario: a platform setup, a tracking
// configuration, and an ordered list of content mutations interleaved
// with oracle and snapshot checkpoints.
type Scenario struct {
	// Name uniquely identifies this scenario (also the golden file name).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken is an optional fixed run token for deterministic golden
	// comparison. If empty, a UUIDv7 token is generated per run.
	RunToken string `yaml:"run_token,omitempty"`

	// Config is the revision module configuration under test.
	Config Config `yaml:"config"`

	// Setup declares the platform environment: fields, templates, users.
	// A missing declared field or template aborts the run.
	Setup Setup `yaml:"setup"`

	// Steps is the main flow. Each step mutates content, advances the
	// clock, or checkpoints the audit log.
	Steps []Step `yaml:"steps"`
}

// Config enumerates what the module tracks, plus installed languages.
// Languages double as the multi-language capability flag: scenarios
// using variants must install at least one language here.
type Config struct {
	Templates []string `yaml:"templates"`
	Fields    []string `yaml:"fields"`
	Languages []string `yaml:"languages,omitempty"`
}

// Setup declares the content environment the scenario runs against.
type Setup struct {
	Fields    []string        `yaml:"fields"`
	Templates []TemplateSetup `yaml:"templates"`
	Users     []string        `yaml:"users,omitempty"`
}

// TemplateSetup declares one template over the setup fields.
type TemplateSetup struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// Step operations.
const (
	OpCreate    = "create"
	OpEdit      = "edit"
	OpPublish   = "publish"
	OpUnpublish = "unpublish"
	OpMove      = "move"
	OpTrash     = "trash"
	OpRestore   = "restore"
	OpDelete    = "delete"
	OpAdvance   = "advance"
	OpVerify    = "verify"
	OpSnapshot  = "snapshot"
	OpPrune     = "prune"
	OpUser      = "user"
)

// Step is one scenario step. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Page is the page handle the step applies to. Handles are scenario
	// local names, resolved to live page ids at runtime.
	Page string `yaml:"page,omitempty"`

	// Template names the page's template (create).
	Template string `yaml:"template,omitempty"`

	// Parent is the parent page handle (create, move). Empty means root.
	Parent string `yaml:"parent,omitempty"`

	// User names the acting user (user).
	User string `yaml:"user,omitempty"`

	// Fields maps field names to default values (create, edit) or to
	// expected reconstructed values (snapshot).
	Fields map[string]string `yaml:"fields,omitempty"`

	// Variants maps field name -> language tag -> value (create, edit,
	// snapshot).
	Variants map[string]map[string]string `yaml:"variants,omitempty"`

	// At is the snapshot time reference: "now", an offset like "-2s",
	// or an absolute RFC 3339 instant (snapshot).
	At string `yaml:"at,omitempty"`

	// By is the clock advance duration (advance).
	By string `yaml:"by,omitempty"`

	// Retain is the history retention window (prune).
	Retain string `yaml:"retain,omitempty"`

	// Depth caps history per page/field pair (prune).
	Depth *int `yaml:"depth,omitempty"`

	// Expect lists the audit rows this step should persist, appended to
	// the oracle log right after the operation. Rows may carry
	// placeholder tokens like "{{page:p1}}".
	Expect []ExpectedRow `yaml:"expect,omitempty"`
}

// ExpectedRow is one predicted audit row as written in a scenario.
type ExpectedRow struct {
	Subject  string `yaml:"subject"`
	Field    string `yaml:"field"`
	User     string `yaml:"user"`
	Username string `yaml:"username"`
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
}

// LoadScenario reads, schema-validates and parses a scenario YAML file.
// Returns an error if the file is malformed, violates the CUE schema,
// contains unknown fields (typos), or is structurally incoherent.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Schema validation first, against the raw document, so constraint
	// violations are reported with schema vocabulary.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Strict decode catches typos the open-ended raw pass would miss.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks cross-field coherence the schema cannot see.
func validateScenario(s *Scenario) error {
	definedFields := make(map[string]bool, len(s.Setup.Fields))
	for _, f := range s.Setup.Fields {
		definedFields[f] = true
	}
	definedTemplates := make(map[string]bool, len(s.Setup.Templates))
	for _, t := range s.Setup.Templates {
		definedTemplates[t.Name] = true
		for _, f := range t.Fields {
			if !definedFields[f] {
				return fmt.Errorf("template %q uses undeclared field %q", t.Name, f)
			}
		}
	}

	for _, f := range s.Config.Fields {
		if !definedFields[f] {
			return fmt.Errorf("config tracks undeclared field %q", f)
		}
	}
	for _, t := range s.Config.Templates {
		if !definedTemplates[t] {
			return fmt.Errorf("config tracks undeclared template %q", t)
		}
	}

	multiLanguage := len(s.Config.Languages) > 0
	handles := make(map[string]bool)

	for i, step := range s.Steps {
		if err := validateStep(i, &step, handles, definedTemplates, multiLanguage); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks one step's required fields and handle discipline.
// Handles are introduced by create and consumed by everything else.
func validateStep(index int, step *Step, handles, templates map[string]bool, multiLanguage bool) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("steps[%d] (%s): %s", index, step.Op, fmt.Sprintf(format, args...))
	}

	if len(step.Variants) > 0 && !multiLanguage {
		return fail("uses language variants but config.languages is empty")
	}

	needsPage := func() error {
		if step.Page == "" {
			return fail("page is required")
		}
		if !handles[step.Page] {
			return fail("unknown page handle %q", step.Page)
		}
		return nil
	}

	switch step.Op {
	case OpCreate:
		if step.Page == "" {
			return fail("page handle is required")
		}
		if handles[step.Page] {
			return fail("page handle %q already in use", step.Page)
		}
		if step.Template == "" {
			return fail("template is required")
		}
		if !templates[step.Template] {
			return fail("undeclared template %q", step.Template)
		}
		if step.Parent != "" && !handles[step.Parent] {
			return fail("unknown parent handle %q", step.Parent)
		}
		handles[step.Page] = true
	case OpEdit:
		if err := needsPage(); err != nil {
			return err
		}
		if len(step.Fields) == 0 && len(step.Variants) == 0 {
			return fail("at least one field or variant is required")
		}
	case OpPublish, OpUnpublish, OpTrash, OpRestore:
		if err := needsPage(); err != nil {
			return err
		}
	case OpMove:
		if err := needsPage(); err != nil {
			return err
		}
		if step.Parent == "" {
			return fail("parent is required")
		}
		if !handles[step.Parent] {
			return fail("unknown parent handle %q", step.Parent)
		}
	case OpDelete:
		if err := needsPage(); err != nil {
			return err
		}
		delete(handles, step.Page)
	case OpAdvance:
		if step.By == "" {
			return fail("by is required")
		}
		if d, err := time.ParseDuration(step.By); err != nil || d <= 0 {
			return fail("by must be a positive duration, got %q", step.By)
		}
	case OpVerify:
		// No fields; compares the oracle log against the live tables.
	case OpSnapshot:
		if err := needsPage(); err != nil {
			return err
		}
		if len(step.Fields) == 0 && len(step.Variants) == 0 {
			return fail("at least one expected field value is required")
		}
	case OpPrune:
		if step.Retain == "" && step.Depth == nil {
			return fail("retain or depth is required")
		}
	case OpUser:
		if step.User == "" {
			return fail("user is required")
		}
	default:
		return fail("unknown op")
	}

	return nil
}
