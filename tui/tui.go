// Package tui is a Bubble Tea terminal client: type a lyric and press
// enter, or press ctrl+r to start humming and ctrl+r again to send it.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hum-search/client"
	"hum-search/recorder"
	"hum-search/wav"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DB954")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	recordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))
)

// Searcher is the part of client.Client the UI needs.
type Searcher interface {
	SearchText(ctx context.Context, query string) (client.Result, error)
	SearchHum(ctx context.Context, sample []byte, hint string) (client.Result, error)
}

// Microphone streams recorded audio into a writer between Start and Stop.
type Microphone interface {
	Start(ctx context.Context, w io.Writer) error
	Stop() error
}

type State int

const (
	StateInput State = iota
	StateRecording
	StateSearching
)

type (
	recordingStartedMsg struct{ err error }

	searchDoneMsg struct {
		result client.Result
		err    error
	}
)

// humSession carries the hint into the recorder's upload callback and the
// response back out of it.
type humSession struct {
	hint   string
	result client.Result
}

type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model

	searcher Searcher
	mic      Microphone
	rec      *recorder.Recorder
	session  *humSession

	result   client.Result
	searched bool
	err      error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewModel(searcher Searcher, mic Microphone) Model {
	ti := textinput.New()
	ti.Placeholder = "a line you remember, or a hint for your hum"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))

	session := &humSession{}
	rec := recorder.New(func(ctx context.Context, sample []byte) error {
		res, err := searcher.SearchHum(ctx, sample, session.hint)
		session.result = res
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		searcher:  searcher,
		mic:       mic,
		rec:       rec,
		session:   session,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run starts the terminal client against the server at serverURL.
func Run(serverURL, captureFormat, captureDevice string) error {
	m := NewModel(client.New(serverURL), wav.NewCapture(captureFormat, captureDevice))
	_, err := tea.NewProgram(m).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.state == StateRecording {
				_ = m.mic.Stop()
			}
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				m.cancel()
				return m, tea.Quit
			}
			return m, nil

		case "enter":
			switch m.state {
			case StateInput:
				query := strings.TrimSpace(m.textInput.Value())
				if query == "" {
					return m, nil
				}
				m.state = StateSearching
				m.err = nil
				return m, tea.Batch(m.searchText(query), m.spinner.Tick)
			case StateRecording:
				m.state = StateSearching
				return m, tea.Batch(m.finishRecording(), m.spinner.Tick)
			}
			return m, nil

		case "ctrl+r":
			switch m.state {
			case StateInput:
				m.err = nil
				m.session.hint = strings.TrimSpace(m.textInput.Value())
				return m, m.startRecording()
			case StateRecording:
				m.state = StateSearching
				return m, tea.Batch(m.finishRecording(), m.spinner.Tick)
			}
			return m, nil
		}

	case recordingStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = StateRecording
		return m, m.spinner.Tick

	case searchDoneMsg:
		m.state = StateInput
		m.searched = true
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateInput {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) searchText(query string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.searcher.SearchText(m.ctx, query)
		return searchDoneMsg{result: res, err: err}
	}
}

func (m Model) startRecording() tea.Cmd {
	return func() tea.Msg {
		if err := m.rec.Start(); err != nil {
			return recordingStartedMsg{err: err}
		}
		if err := m.mic.Start(m.ctx, m.rec); err != nil {
			// abandon the empty session so the recorder is idle again
			_ = m.rec.Stop(m.ctx)
			return recordingStartedMsg{err: err}
		}
		return recordingStartedMsg{}
	}
}

// finishRecording stops the microphone first so every captured byte is in
// the recorder before it finalizes and uploads.
func (m Model) finishRecording() tea.Cmd {
	return func() tea.Msg {
		if err := m.mic.Stop(); err != nil {
			_ = m.rec.Stop(m.ctx)
			return searchDoneMsg{err: err}
		}
		if err := m.rec.Stop(m.ctx); err != nil {
			return searchDoneMsg{err: err}
		}
		return searchDoneMsg{result: m.session.result}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ Hum Search"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Find a song by humming or by a remembered lyric"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(subtitleStyle.Render("Lyric or hint:"))
		b.WriteString("\n\n")
		b.WriteString(m.textInput.View())
		b.WriteString("\n\n")
	case StateRecording:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(recordingStyle.Render("Recording... hum now, ctrl+r or enter to send"))
		b.WriteString("\n\n")
	case StateSearching:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Searching..."))
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderResult())

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	return b.String()
}

func (m Model) renderResult() string {
	if !m.searched || m.err != nil {
		return ""
	}

	var b strings.Builder
	if m.result.Note != "" {
		b.WriteString(noteStyle.Render(m.result.Note))
		b.WriteString("\n")
	}
	if len(m.result.Tracks) == 0 {
		b.WriteString(dimStyle.Render("No tracks found."))
		b.WriteString("\n")
		return b.String()
	}

	for i, t := range m.result.Tracks {
		b.WriteString(trackStyle.Render(fmt.Sprintf("%2d. %s", i+1, t.Name)))
		b.WriteString(fmt.Sprintf(" by %s", t.Artists))
		if t.Album != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", t.Album)))
		}
		b.WriteString("\n")
		if t.ExternalURL != nil && *t.ExternalURL != "" {
			b.WriteString(dimStyle.Render("    " + *t.ExternalURL))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateRecording:
		return "ctrl+r/enter: stop and search • ctrl+c: quit"
	case StateSearching:
		return "ctrl+c: quit"
	default:
		return "enter: search lyric • ctrl+r: record hum (text becomes the hint) • esc: quit"
	}
}
