package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hum-search/client"
	"hum-search/models"
	"hum-search/recorder"
)

type fakeSearcher struct {
	textQueries []string
	humSamples  [][]byte
	humHints    []string
	result      client.Result
	err         error
}

func (f *fakeSearcher) SearchText(_ context.Context, query string) (client.Result, error) {
	f.textQueries = append(f.textQueries, query)
	return f.result, f.err
}

func (f *fakeSearcher) SearchHum(_ context.Context, sample []byte, hint string) (client.Result, error) {
	f.humSamples = append(f.humSamples, sample)
	f.humHints = append(f.humHints, hint)
	return f.result, f.err
}

type fakeMic struct {
	w        io.Writer
	startErr error
	started  int
	stopped  int
}

func (f *fakeMic) Start(_ context.Context, w io.Writer) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.w = w
	return nil
}

func (f *fakeMic) Stop() error {
	f.stopped++
	return nil
}

// collect runs cmd and any batched commands, returning the messages
// produced.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

func feed(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func externalURL(s string) *string { return &s }

func TestTextSearch(t *testing.T) {
	searcher := &fakeSearcher{result: client.Result{Tracks: []models.Track{
		{ID: "t1", Name: "Yellow Submarine", Artists: "The Beatles", Album: "Revolver", ExternalURL: externalURL("https://open.spotify.com/track/t1")},
	}}}
	m := NewModel(searcher, &fakeMic{})
	m.textInput.SetValue("  we all live in a yellow submarine ")

	m, cmd := press(m, tea.KeyEnter)
	assert.Equal(t, StateSearching, m.state)

	done, ok := find[searchDoneMsg](collect(cmd))
	require.True(t, ok)
	m = feed(m, done)

	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, []string{"we all live in a yellow submarine"}, searcher.textQueries)
	view := m.View()
	assert.Contains(t, view, "Yellow Submarine")
	assert.Contains(t, view, "https://open.spotify.com/track/t1")
}

func TestEnterWithBlankInputDoesNothing(t *testing.T) {
	searcher := &fakeSearcher{}
	m := NewModel(searcher, &fakeMic{})

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, StateInput, m.state)
	assert.Empty(t, searcher.textQueries)
}

func TestHumRecording(t *testing.T) {
	searcher := &fakeSearcher{result: client.Result{Tracks: []models.Track{}, Note: "no match found"}}
	mic := &fakeMic{}
	m := NewModel(searcher, mic)
	m.textInput.SetValue("yellow submarine")

	m, cmd := press(m, tea.KeyCtrlR)
	started, ok := find[recordingStartedMsg](collect(cmd))
	require.True(t, ok)
	require.NoError(t, started.err)
	m = feed(m, started)
	assert.Equal(t, StateRecording, m.state)
	assert.Equal(t, recorder.Recording, m.rec.State())

	_, err := mic.w.Write([]byte("hummed-"))
	require.NoError(t, err)
	_, err = mic.w.Write([]byte("audio"))
	require.NoError(t, err)

	m, cmd = press(m, tea.KeyCtrlR)
	assert.Equal(t, StateSearching, m.state)
	done, ok := find[searchDoneMsg](collect(cmd))
	require.True(t, ok)
	m = feed(m, done)

	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, 1, mic.stopped)
	require.Len(t, searcher.humSamples, 1)
	assert.Equal(t, "hummed-audio", string(searcher.humSamples[0]))
	assert.Equal(t, []string{"yellow submarine"}, searcher.humHints)
	assert.Equal(t, recorder.Idle, m.rec.State())
	assert.Contains(t, m.View(), "no match found")
}

func TestHumRecording_MicFailure(t *testing.T) {
	searcher := &fakeSearcher{}
	m := NewModel(searcher, &fakeMic{startErr: errors.New("ffmpeg not found")})

	m, cmd := press(m, tea.KeyCtrlR)
	started, ok := find[recordingStartedMsg](collect(cmd))
	require.True(t, ok)
	m = feed(m, started)

	assert.Equal(t, StateInput, m.state)
	assert.EqualError(t, m.err, "ffmpeg not found")
	assert.Equal(t, recorder.Idle, m.rec.State())
	assert.Empty(t, searcher.humSamples)
}

func TestSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("HTTP 500: missing configuration: SPOTIFY_CLIENT_ID")}
	m := NewModel(searcher, &fakeMic{})
	m.textInput.SetValue("hello")

	m, cmd := press(m, tea.KeyEnter)
	done, ok := find[searchDoneMsg](collect(cmd))
	require.True(t, ok)
	m = feed(m, done)

	assert.Contains(t, m.View(), "missing configuration")
}
