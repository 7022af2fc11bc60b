package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeCompileFailed, "rule table does not compile", map[string]int{"line": 4}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E008", resp.Error.Code)
	assert.Equal(t, "rule table does not compile", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Rule table valid"))
	require.NoError(t, formatter.Error("E005", "not found", "hidden"))

	assert.Equal(t, "Rule table valid\nError [E005]: not found\n", buf.String())
}

func TestOutputFormatter_TextErrorVerboseDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E009", "bad site file", "sites[0]: callee is required"))
	assert.Contains(t, buf.String(), "Details: sites[0]: callee is required")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("Loaded %d function(s)", 3)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("Loaded %d function(s)", 3)
	assert.Equal(t, "Loaded 3 function(s)\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON")

	fallback := &OutputFormatter{Format: "text", Writer: out, Verbose: true}
	fallback.VerboseLog("to stdout")
	assert.Equal(t, "to stdout\n", out.String())
}

func TestExitError(t *testing.T) {
	base := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open database", base)

	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))

	assert.Equal(t, "2 scenario(s) failed", NewExitError(ExitFailure, "2 scenario(s) failed").Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
