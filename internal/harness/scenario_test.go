package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/basic_flow.yaml")
	require.NoError(t, err)

	assert.Equal(t, "basic_flow", s.Name)
	assert.Equal(t, []string{"basic_page"}, s.Config.Templates)
	assert.Len(t, s.Steps, 9)
	assert.Equal(t, OpCreate, s.Steps[0].Op)
	require.Len(t, s.Steps[0].Expect, 1)
	assert.Equal(t, "{{page:p1}}", s.Steps[0].Expect[0].Subject)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/does_not_exist.yaml")
	assert.Error(t, err)
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo_scenario
description: a top-level typo must not be silently ignored
templtes: [basic_page]
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: verify
`))
	assert.Error(t, err)
}

func TestParseScenario_UnknownOpRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad_op
description: steps only accept the known operation vocabulary
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: obliterate
    page: p1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestParseScenario_ConfigTracksUndeclaredField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad_config
description: tracked fields must exist in the setup
config:
  templates: [basic_page]
  fields: [title, missing]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: verify
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared field "missing"`)
}

func TestParseScenario_VariantsRequireLanguages(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: no_languages
description: variant steps need the multi-language capability enabled
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: create
    page: p1
    template: basic_page
    variants:
      title:
        fi: testisivu
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.languages is empty")
}

func TestParseScenario_UnknownHandleRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad_handle
description: steps may only reference handles a create step introduced
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: edit
    page: never_created
    fields:
      title: boom
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown page handle "never_created"`)
}

func TestParseScenario_HandleUnusableAfterDelete(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: use_after_delete
description: a deleted handle must not be referenced again
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: create
    page: p1
    template: basic_page
    fields:
      title: a test page
  - op: delete
    page: p1
  - op: edit
    page: p1
    fields:
      title: ghost write
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown page handle "p1"`)
}

func TestParseScenario_BadAdvanceDuration(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad_advance
description: advance takes a positive Go duration
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: advance
    by: two weeks
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive duration")
}
