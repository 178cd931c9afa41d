// Package oracle maintains an in-memory prediction of the audit log and
// verifies it against the actually persisted rows at checkpoints.
//
// The driver appends one expected row after every operation it believes
// should persist one, clears the log when the subject's history is
// cascade-deleted, and at each checkpoint compares prediction and
// reality position for position. The verification itself is a single
// uniform ordered-equality check; all per-scenario knowledge about how
// many rows an operation produces lives with the driver.
package oracle

import (
	"fmt"
	"strings"
)

// Row is one entry of the audit log as the oracle sees it: the joined
// 6-tuple with every identifier stringified so expected rows can carry
// placeholder tokens for values not known until runtime.
type Row struct {
	Subject  string `json:"subject"`
	Field    string `json:"field"`
	User     string `json:"user"`
	UserName string `json:"username"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// IsZero reports whether the row is the synthesized empty placeholder.
func (r Row) IsZero() bool { return r == Row{} }

func (r Row) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s, %s, %q)",
		r.Subject, r.Field, r.User, r.UserName, r.Property, r.Value)
}

// Resolver maps placeholder names to their runtime values. A name "page:p1"
// is written "{{page:p1}}" inside an expected row field.
type Resolver map[string]string

// Resolve substitutes every known placeholder in one field.
// Resolved values never contain tokens, so applying a resolver twice
// yields the same result.
func (res Resolver) Resolve(s string) string {
	if len(res) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	pairs := make([]string, 0, len(res)*2)
	for name, value := range res {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// resolveRow returns a resolved copy; the logged row is never mutated.
func (res Resolver) resolveRow(r Row) Row {
	return Row{
		Subject:  res.Resolve(r.Subject),
		Field:    res.Resolve(r.Field),
		User:     res.Resolve(r.User),
		UserName: res.Resolve(r.UserName),
		Property: res.Resolve(r.Property),
		Value:    res.Resolve(r.Value),
	}
}

// Mismatch kinds.
const (
	KindRowMismatch        = "row_mismatch"        // both sides present, rows differ
	KindMissingExpectation = "missing_expectation" // actual log has more rows than predicted
	KindMissingRow         = "missing_row"         // predicted rows the actual log never got
)

// Mismatch is one positional divergence between prediction and reality.
type Mismatch struct {
	Index    int
	Kind     string
	Expected Row
	Actual   Row
}

func (m Mismatch) String() string {
	switch m.Kind {
	case KindMissingExpectation:
		return fmt.Sprintf("row %d: missing expectation for actual row %s", m.Index, m.Actual)
	case KindMissingRow:
		return fmt.Sprintf("row %d: expected %s, but actual log is exhausted", m.Index, m.Expected)
	default:
		return fmt.Sprintf("row %d:\n  expected: %s\n  actual:   %s", m.Index, m.Expected, m.Actual)
	}
}

// VerifyError carries every row-level mismatch of one failed checkpoint.
type VerifyError struct {
	Mismatches []Mismatch
}

func (e *VerifyError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "audit log verification failed: %d mismatched row(s)\n", len(e.Mismatches))
	for _, m := range e.Mismatches {
		fmt.Fprintf(&buf, "  %s\n", m)
	}
	return buf.String()
}

// Log is the ordered in-memory prediction of the audit log.
type Log struct {
	rows []Row
}

// NewLog returns an empty prediction log.
func NewLog() *Log { return &Log{} }

// Record appends one predicted row. In-memory only; the external system
// is never touched.
func (l *Log) Record(r Row) { l.rows = append(l.rows, r) }

// Reset clears the prediction. Called after an operation that cascades
// deletion of the subject's audit rows.
func (l *Log) Reset() { l.rows = nil }

// Len returns the number of predicted rows.
func (l *Log) Len() int { return len(l.rows) }

// Rows returns a copy of the predicted rows, unresolved.
func (l *Log) Rows() []Row {
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Verify compares the prediction against the actual rows position by
// position, resolving placeholders in the expected side first. A longer
// actual side is reported as missing expectations against synthesized
// empty rows; a longer expected side fails explicitly rather than
// passing vacuously. Returns nil on success or a *VerifyError listing
// every mismatch.
func (l *Log) Verify(actual []Row, res Resolver) error {
	var mismatches []Mismatch

	n := len(l.rows)
	if len(actual) > n {
		n = len(actual)
	}

	for i := 0; i < n; i++ {
		switch {
		case i >= len(l.rows):
			mismatches = append(mismatches, Mismatch{
				Index:  i,
				Kind:   KindMissingExpectation,
				Actual: actual[i],
			})
		case i >= len(actual):
			mismatches = append(mismatches, Mismatch{
				Index:    i,
				Kind:     KindMissingRow,
				Expected: res.resolveRow(l.rows[i]),
			})
		default:
			expected := res.resolveRow(l.rows[i])
			if expected != actual[i] {
				mismatches = append(mismatches, Mismatch{
					Index:    i,
					Kind:     KindRowMismatch,
					Expected: expected,
					Actual:   actual[i],
				})
			}
		}
	}

	if len(mismatches) > 0 {
		return &VerifyError{Mismatches: mismatches}
	}
	return nil
}
