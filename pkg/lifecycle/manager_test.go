package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownSignalsAllHandles(t *testing.T) {
	m := NewManager()
	handle, err := m.NewServiceHandle("worker")
	require.NoError(t, err)

	select {
	case <-handle.Done():
		t.Fatal("停机前Done不应关闭")
	default:
	}

	m.Shutdown()

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("停机信号未送达")
	}
	assert.Error(t, handle.Err())
}

func TestDuplicateServiceNameRejected(t *testing.T) {
	m := NewManager()
	_, err := m.NewServiceHandle("worker")
	require.NoError(t, err)

	_, err = m.NewServiceHandle("worker")
	assert.Error(t, err)
}

func TestWaitWithTimeoutReportsRemaining(t *testing.T) {
	m := NewManager()
	handle, err := m.NewServiceHandle("slow-worker")
	require.NoError(t, err)

	m.Shutdown()
	remaining := m.WaitWithTimeout(10 * time.Millisecond)
	assert.Equal(t, []string{"slow-worker"}, remaining)

	handle.Close()
	assert.Nil(t, m.WaitWithTimeout(time.Second))
}

func TestSleepInterruptedByShutdown(t *testing.T) {
	m := NewManager()
	handle, err := m.NewServiceHandle("worker")
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Shutdown()
	}()

	start := time.Now()
	err = handle.Sleep(5 * time.Second)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
