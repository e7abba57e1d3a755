package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/daemon"
)

func TestPidFile_Path(t *testing.T) {
	dir := testEnv(t)

	pf := pidFile()
	assert.Equal(t, filepath.Join(dir, "tracker-serve.pid"), pf.Path)
}

func TestServeLogPath(t *testing.T) {
	dir := testEnv(t)
	assert.Equal(t, filepath.Join(dir, "tracker-serve.log"), serveLogPath())
}

func TestServeStatusRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so status should show "not running" without error.
	require.NoError(t, serveStatusRun())
	assert.Contains(t, ui.Out.(*bytes.Buffer).String(), "not running")
}

func TestServeStatusRun_RemovesStalePID(t *testing.T) {
	dir := testEnv(t)
	pf := daemon.NewPIDFile(filepath.Join(dir, "tracker-serve.pid"))
	require.NoError(t, pf.WritePID(999999))

	require.NoError(t, serveStatusRun())
	_, err := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestServeStatusRun_Running(t *testing.T) {
	dir := testEnv(t)
	pf := daemon.NewPIDFile(filepath.Join(dir, "tracker-serve.pid"))
	require.NoError(t, pf.WritePID(os.Getpid()))

	require.NoError(t, serveStatusRun())
	assert.Contains(t, ui.Out.(*bytes.Buffer).String(), "is running")
}

func TestServeStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestServeStartRun_AlreadyRunning(t *testing.T) {
	dir := testEnv(t)

	// Write a PID file for the current process (which is alive).
	pf := daemon.NewPIDFile(filepath.Join(dir, "tracker-serve.pid"))
	require.NoError(t, pf.WritePID(os.Getpid()))

	err := serveStartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServeStartRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, serveStartRun())
	_, err := os.Stat(filepath.Join(dir, "tracker-serve.pid"))
	assert.True(t, os.IsNotExist(err), "dry run must not spawn a server")
	assert.Contains(t, ui.ErrOut.(*bytes.Buffer).String(), "Would start")
}

func TestServeRun_RefusesSecondInstance(t *testing.T) {
	dir := testEnv(t)
	pf := daemon.NewPIDFile(filepath.Join(dir, "tracker-serve.pid"))
	require.NoError(t, pf.WritePID(os.Getppid()))

	err := serveRun(t.Context())
	assert.ErrorIs(t, err, daemon.ErrRunning)
}
