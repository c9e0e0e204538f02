package wav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Capture records the microphone through ffmpeg as 16-bit PCM mono WAV at
// 44.1 kHz and streams it to a writer.
type Capture struct {
	format string
	device string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan error
}

// NewCapture returns a Capture reading the ffmpeg input device (for example
// "alsa"/"default" or "avfoundation"/":0").
func NewCapture(format, device string) *Capture {
	return &Capture{format: format, device: device}
}

func (c *Capture) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", c.format,
		"-i", c.device,
		"-c:a", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		"-f", "wav",
		"pipe:1",
	}
}

// Start launches ffmpeg and copies its output to w until Stop is called.
func (c *Capture) Start(ctx context.Context, w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return errors.New("capture already running")
	}

	c.stderr.Reset()
	cmd := exec.CommandContext(ctx, "ffmpeg", c.args()...)
	cmd.Stdout = w
	cmd.Stderr = &c.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %v", err)
	}

	c.cmd = cmd
	c.done = make(chan error, 1)
	go func(done chan<- error) {
		done <- cmd.Wait()
	}(c.done)

	return nil
}

// Stop asks ffmpeg to finish the file and waits until everything it
// produced has been written.
func (c *Capture) Stop() error {
	c.mu.Lock()
	cmd, done := c.cmd, c.done
	c.cmd, c.done = nil, nil
	c.mu.Unlock()

	if cmd == nil {
		return errors.New("capture not running")
	}

	// ffmpeg finalizes its output on SIGINT; windows has no such signal
	if runtime.GOOS == "windows" {
		_ = cmd.Process.Kill()
	} else if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		err = <-done
	}

	// a non-zero exit is expected after the interrupt
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("ffmpeg capture failed: %v, output: %s", err, strings.TrimSpace(c.stderr.String()))
	}
	return nil
}
