package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCompileErrors(t *testing.T) {
	log := "   Compiling demo v0.1.0\n" +
		"error[E0308]: mismatched types\n" +
		" --> src/main.rs:3:5\n" +
		"  |\n" +
		"\n" +
		"warning: unused variable\n" +
		"\n" +
		"error: cannot find value `y` in this scope\r\n" +
		" --> src/main.rs:4:5\r\n" +
		"error: aborting due to 2 previous errors\n" +
		"error: could not compile `demo`\n"

	diags := ExtractCompileErrors(log)
	require.Len(t, diags, 2)

	assert.Equal(t, Diagnostic{
		Code:    "E0308",
		Title:   "mismatched types",
		Message: " --> src/main.rs:3:5\n  |",
	}, diags[0])
	assert.Equal(t, Diagnostic{
		Title:   "cannot find value `y` in this scope",
		Message: " --> src/main.rs:4:5",
	}, diags[1])
}

func TestExtractCompileErrorsClean(t *testing.T) {
	assert.Empty(t, ExtractCompileErrors("   Compiling demo v0.1.0\n    Finished release\n"))
}

func TestCompileErrorMessage(t *testing.T) {
	assert.Equal(t, "client: compile failed with status 500", (&CompileError{Status: 500}).Error())
}
