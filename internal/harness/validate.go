package harness

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// scenarioSchema is the CUE contract every scenario document must
// satisfy before structural decoding. Definitions are closed, so
// unknown fields are rejected at the schema level too.
const scenarioSchema = `
#ExpectedRow: {
	subject:  string & !=""
	field:    string & !=""
	user:     string & !=""
	username: string & !=""
	property: string & !=""
	value:    string
}

#TemplateSetup: {
	name:   =~"^[a-z][a-z0-9_]*$"
	fields: [...string] & [_, ...]
}

#Step: {
	op: "create" | "edit" | "publish" | "unpublish" | "move" | "trash" |
		"restore" | "delete" | "advance" | "verify" | "snapshot" |
		"prune" | "user"
	page?:     string
	template?: string
	parent?:   string
	user?:     string
	fields?: {[string]: string}
	variants?: {[string]: {[string]: string}}
	at?:     string
	by?:     string
	retain?: string
	depth?:  int & >=1
	expect?: [...#ExpectedRow]
}

#Scenario: {
	name:        =~"^[a-z][a-z0-9_]*$"
	description: string & !=""
	run_token?:  string & !=""
	config: {
		templates: [...string] & [_, ...]
		fields:    [...string] & [_, ...]
		languages?: [...string]
	}
	setup: {
		fields:    [...string] & [_, ...]
		templates: [...#TemplateSetup] & [_, ...]
		users?:    [...string]
	}
	steps: [...#Step] & [_, ...]
}
`

// validateAgainstSchema unifies the raw document with the scenario
// schema and reports the first constraint violation.
func validateAgainstSchema(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
