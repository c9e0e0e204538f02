package recorder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploads struct {
	mu      sync.Mutex
	samples [][]byte
	err     error
}

func (u *uploads) fn(_ context.Context, sample []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.samples = append(u.samples, sample)
	return u.err
}

func TestRecorder_Lifecycle(t *testing.T) {
	u := &uploads{}
	r := New(u.fn)
	assert.Equal(t, Idle, r.State())

	require.NoError(t, r.Start())
	assert.Equal(t, Recording, r.State())

	r.Write([]byte("chunk-1,"))
	r.Write([]byte("chunk-2"))

	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, Idle, r.State())

	require.Len(t, u.samples, 1)
	assert.Equal(t, "chunk-1,chunk-2", string(u.samples[0]))
}

func TestRecorder_InvalidTransitions(t *testing.T) {
	u := &uploads{}
	r := New(u.fn)

	assert.ErrorIs(t, r.Stop(context.Background()), ErrNotRecording)

	_, err := r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrAlreadyRecording)

	r.Write([]byte("x"))
	require.NoError(t, r.Stop(context.Background()))
	assert.ErrorIs(t, r.Stop(context.Background()), ErrNotRecording)

	assert.Len(t, u.samples, 1)
}

func TestRecorder_BusyWhileFinalizing(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := New(func(ctx context.Context, sample []byte) error {
		close(entered)
		<-release
		return nil
	})

	require.NoError(t, r.Start())
	r.Write([]byte("hum"))

	done := make(chan error, 1)
	go func() { done <- r.Stop(context.Background()) }()

	<-entered
	assert.Equal(t, Finalizing, r.State())
	assert.ErrorIs(t, r.Start(), ErrBusy)
	assert.ErrorIs(t, r.Stop(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, r.State())
}

func TestRecorder_EmptySampleSkipsUpload(t *testing.T) {
	u := &uploads{}
	r := New(u.fn)

	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Stop(context.Background()), ErrEmptySample)
	assert.Equal(t, Idle, r.State())
	assert.Empty(t, u.samples)
}

func TestRecorder_UploadErrorReturnsToIdle(t *testing.T) {
	u := &uploads{err: errors.New("network down")}
	r := New(u.fn)

	require.NoError(t, r.Start())
	r.Write([]byte("hum"))
	assert.EqualError(t, r.Stop(context.Background()), "network down")
	assert.Equal(t, Idle, r.State())

	// a new session starts with an empty buffer
	u.err = nil
	require.NoError(t, r.Start())
	r.Write([]byte("again"))
	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, "again", string(u.samples[1]))
}

func TestRecorder_CapsSample(t *testing.T) {
	u := &uploads{}
	r := New(u.fn)

	require.NoError(t, r.Start())
	chunk := bytes.Repeat([]byte{1}, 4<<20)
	for i := 0; i < 3; i++ {
		n, err := r.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	require.NoError(t, r.Stop(context.Background()))
	assert.Len(t, u.samples[0], MaxSampleBytes)
}
