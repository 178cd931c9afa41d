package harness

import "github.com/google/uuid"

// TokenGenerator produces run tokens. One token tags every trace line
// and result of a single scenario execution.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator is the production generator. UUIDv7 tokens sort by
// creation time, which keeps archived run results in execution order.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns a predetermined run token. Golden comparison
// needs byte-identical output across runs, so golden tests pin the token.
type FixedGenerator struct {
	Token string
}

func (g FixedGenerator) Generate() string { return g.Token }
