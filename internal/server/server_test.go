package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
)

func discardLogger() *slog.Logger {
	return logging.Discard()
}

type fakeLock struct {
	acquireErr error
	acquired   int
	released   int
}

func (l *fakeLock) Acquire() error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired++
	return nil
}

func (l *fakeLock) HolderPID() int { return 0 }

func (l *fakeLock) Release() error {
	l.released++
	return nil
}

func TestRun_SecondInstanceRefused(t *testing.T) {
	f := newFixture(t)
	lock := &fakeLock{acquireErr: domain.ErrServerRunning}
	srv, err := New(f.handlers, lock, Options{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)

	err = srv.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerRunning)
	assert.Equal(t, 0, lock.released)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	lock := &fakeLock{}
	srv, err := New(f.handlers, lock, Options{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
}
