package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCodeNil(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}

func TestGetExitCodeExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad flags")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCodeWrappedExitError(t *testing.T) {
	err := WrapExitError(ExitFailure, "server rejected task", errors.New("400 bad request"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGetExitCodeUnknownErrorDefaultsToFailure(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
}

func TestExitErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapExitError(ExitFailure, "wrapped", cause)
	require.ErrorIs(t, err, cause)
}

func TestExitErrorMessageWithoutCause(t *testing.T) {
	err := NewExitError(ExitCommandError, "missing --host")
	assert.Equal(t, "missing --host", err.Error())
}
