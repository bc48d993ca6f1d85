package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestShutdown_LogsEveryFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	var called []string
	stop := func(name string, err error) stopper {
		return stopper{name: name, stop: func(context.Context) error {
			called = append(called, name)
			return err
		}}
	}

	shutdown(context.Background(), log,
		stop("http", nil),
		stop("metrics", errors.New("context deadline exceeded")),
	)

	assert.Equal(t, []string{"http", "metrics"}, called)
	entries := logs.FilterMessage("Shutdown failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "metrics", entries[0].ContextMap()["listener"])
	assert.Equal(t, "context deadline exceeded", entries[0].ContextMap()["error"])
}

func TestShutdown_FailureDoesNotSkipOthers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	metricsStopped := false
	shutdown(context.Background(), zap.New(core),
		stopper{name: "http", stop: func(context.Context) error { return errors.New("boom") }},
		stopper{name: "metrics", stop: func(context.Context) error { metricsStopped = true; return nil }},
	)

	assert.True(t, metricsStopped)
	assert.Equal(t, 1, logs.FilterMessage("Shutdown failed").Len())
}

func TestRootCmd_ErrorIsNotPrintedByCobra(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"add", "onlyone"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
	assert.Empty(t, errOut.String())
	assert.Empty(t, out.String())
}
