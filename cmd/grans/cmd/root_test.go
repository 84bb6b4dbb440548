package cmd

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBrokenPipe_DetectsEPIPEAndClosedPipe(t *testing.T) {
	// Given/When/Then: both broken-pipe flavors are recognized
	assert.True(t, isBrokenPipe(syscall.EPIPE))
	assert.True(t, isBrokenPipe(os.ErrClosed))
	assert.False(t, isBrokenPipe(errors.New("boom")))
	assert.False(t, isBrokenPipe(nil))
}

func TestParentDir_SplitsOnLastSeparator(t *testing.T) {
	assert.Equal(t, "/home/user", parentDir("/home/user/archive.db"))
	assert.Equal(t, ".", parentDir("archive.db"))
}

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: every documented subcommand is wired in
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "list", "show", "with", "recent", "today", "info", "sync", "embed", "dropbox", "version"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}
