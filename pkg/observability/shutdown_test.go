package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	sm.RegisterShutdownFunc(nil)

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)

	errA := errors.New("close db")
	errB := errors.New("close redis")
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errA })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errB })

	err := sm.Shutdown()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestShutdownManager_StopsIdleServer(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), 0, server)

	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)
	assert.NoError(t, sm.Shutdown())
}

func TestShutdownManager_WaitForSignalContextCancel(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)

	called := false
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, sm.WaitForSignal(ctx))
	assert.True(t, called)
}
