package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsole_QuietSuppressesSectionAndStepButNotWarnOrFailure(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, nil)

	c.Section("hosts")
	c.Step("cloning %s", "host1")
	c.Warn("disk getting full")
	c.RecordFailure("host", "host1", errors.New("boom"))

	out := buf.String()
	require.NotContains(t, out, "== hosts ==")
	require.NotContains(t, out, "cloning host1")
	require.Contains(t, out, "WARN: disk getting full")

	summary := c.Summary()
	require.Len(t, summary.Failures, 1)
	require.Equal(t, "host", summary.Failures[0].Kind)
}

func TestConsole_NonQuietPrintsSectionAndStep(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, nil)

	c.Section("hosts")
	c.Step("cloning %s", "host1")

	out := buf.String()
	require.True(t, strings.Contains(out, "== hosts =="))
	require.True(t, strings.Contains(out, "cloning host1"))
}

func TestSummary_StringReportsNoFailuresOrListsThem(t *testing.T) {
	empty := Summary{}
	require.Equal(t, "all records applied successfully", empty.String())

	withFailures := Summary{Failures: []Failure{{Kind: "host", Name: "h1", Err: errors.New("x")}}}
	require.Contains(t, withFailures.String(), "1 record(s) failed")
	require.Contains(t, withFailures.String(), `host "h1": x`)
}

func TestConsole_RecordFailureIsConcurrencySafe(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, nil)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			c.RecordFailure("host", "h", errors.New("x"))
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	require.Len(t, c.Summary().Failures, 20)
}
