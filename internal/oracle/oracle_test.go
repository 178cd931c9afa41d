package oracle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(subject, field, value string) Row {
	return Row{
		Subject:  subject,
		Field:    field,
		User:     "40",
		UserName: "guest",
		Property: "data",
		Value:    value,
	}
}

func TestVerify_EqualSequencesPass(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))
	l.Record(row("1001", "78", "body text"))

	actual := []Row{
		row("1001", "76", "a test page"),
		row("1001", "78", "body text"),
	}
	assert.NoError(t, l.Verify(actual, nil))
}

func TestVerify_BothEmptyPass(t *testing.T) {
	l := NewLog()
	assert.NoError(t, l.Verify(nil, nil))
}

func TestVerify_PositionalDivergenceFails(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))
	l.Record(row("1001", "78", "body text"))

	// Same rows, swapped order: order is part of the contract.
	actual := []Row{
		row("1001", "78", "body text"),
		row("1001", "76", "a test page"),
	}
	err := l.Verify(actual, nil)
	require.Error(t, err)

	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Mismatches, 2)
	assert.Equal(t, KindRowMismatch, verr.Mismatches[0].Kind)
}

func TestVerify_ActualLongerReportsMissingExpectation(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))

	actual := []Row{
		row("1001", "76", "a test page"),
		row("1001", "78", "surprise"),
	}
	err := l.Verify(actual, nil)
	require.Error(t, err)

	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Mismatches, 1)
	m := verr.Mismatches[0]
	assert.Equal(t, KindMissingExpectation, m.Kind)
	assert.Equal(t, 1, m.Index)
	// The synthesized expectation is the empty placeholder row.
	assert.True(t, m.Expected.IsZero())
	assert.Contains(t, m.String(), "missing expectation")
}

func TestVerify_ExpectedLongerFailsExplicitly(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))
	l.Record(row("1001", "78", "never persisted"))

	err := l.Verify([]Row{row("1001", "76", "a test page")}, nil)
	require.Error(t, err)

	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Mismatches, 1)
	assert.Equal(t, KindMissingRow, verr.Mismatches[0].Kind)
}

func TestVerify_PlaceholderResolution(t *testing.T) {
	l := NewLog()
	l.Record(Row{
		Subject:  "{{page:p1}}",
		Field:    "{{field:title}}",
		User:     "{{user:guest}}",
		UserName: "guest",
		Property: "data",
		Value:    "a test page",
	})

	res := Resolver{
		"page:p1":     "1001",
		"field:title": "76",
		"user:guest":  "40",
	}
	actual := []Row{row("1001", "76", "a test page")}
	assert.NoError(t, l.Verify(actual, res))
}

func TestVerify_ResolutionDoesNotMutateLog(t *testing.T) {
	l := NewLog()
	l.Record(Row{Subject: "{{page:p1}}", Property: "data"})

	res := Resolver{"page:p1": "1001"}
	actual := []Row{{Subject: "1001", Property: "data"}}

	// Two checkpoints with the same resolver: idempotent, both pass,
	// and the logged row still carries the token.
	require.NoError(t, l.Verify(actual, res))
	require.NoError(t, l.Verify(actual, res))
	assert.Equal(t, "{{page:p1}}", l.Rows()[0].Subject)
}

func TestVerify_UnresolvedPlaceholderNeverMatches(t *testing.T) {
	l := NewLog()
	l.Record(Row{Subject: "{{page:p1}}", Property: "data"})

	// Resolver missing the token: comparison sees the literal token and
	// fails rather than silently matching something.
	err := l.Verify([]Row{{Subject: "1001", Property: "data"}}, Resolver{})
	assert.Error(t, err)
}

func TestReset_EmptiesLog(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))
	l.Reset()

	assert.Equal(t, 0, l.Len())
	// Against a now-empty external state, verification succeeds.
	assert.NoError(t, l.Verify(nil, nil))
}

func TestRows_ReturnsCopy(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))

	rows := l.Rows()
	rows[0].Value = "mutated"
	assert.Equal(t, "a test page", l.Rows()[0].Value)
}

func TestVerifyError_FormatsDiagnosticDump(t *testing.T) {
	l := NewLog()
	l.Record(row("1001", "76", "a test page"))

	err := l.Verify([]Row{row("1001", "76", "something else")}, nil)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "1 mismatched row(s)")
	assert.Contains(t, msg, "a test page")
	assert.Contains(t, msg, "something else")
}
