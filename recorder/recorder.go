// Package recorder models one press-to-record session: audio chunks are
// buffered while recording and stopping hands exactly one sample to the
// upload callback.
//
//	Idle --Start--> Recording --Stop--> Finalizing --upload done--> Idle
package recorder

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

// MaxSampleBytes caps a buffered sample. Chunks past the cap are dropped.
const MaxSampleBytes = 10 << 20

type State int

const (
	Idle State = iota
	Recording
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyRecording = errors.New("recorder: already recording")
	ErrNotRecording     = errors.New("recorder: not recording")
	ErrBusy             = errors.New("recorder: previous sample still uploading")
	ErrEmptySample      = errors.New("recorder: nothing was recorded")
)

// UploadFunc receives the completed sample.
type UploadFunc func(ctx context.Context, sample []byte) error

type Recorder struct {
	upload UploadFunc

	mu    sync.Mutex
	state State
	buf   bytes.Buffer
}

func New(upload UploadFunc) *Recorder {
	return &Recorder{upload: upload}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Recording:
		return ErrAlreadyRecording
	case Finalizing:
		return ErrBusy
	}
	r.buf.Reset()
	r.state = Recording
	return nil
}

// Write buffers a chunk. It implements io.Writer so a capture process can
// stream straight into the recorder.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return 0, ErrNotRecording
	}
	if room := MaxSampleBytes - r.buf.Len(); room > 0 {
		if len(p) > room {
			r.buf.Write(p[:room])
		} else {
			r.buf.Write(p)
		}
	}
	return len(p), nil
}

// Stop ends the recording, uploads the buffered sample once and returns the
// recorder to Idle whatever the upload outcome.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case Idle:
		r.mu.Unlock()
		return ErrNotRecording
	case Finalizing:
		r.mu.Unlock()
		return ErrBusy
	}
	r.state = Finalizing
	sample := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.state = Idle
		r.mu.Unlock()
	}()

	if len(sample) == 0 {
		return ErrEmptySample
	}
	return r.upload(ctx, sample)
}
