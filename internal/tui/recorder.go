package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/recording"
	"github.com/Iron-Ham/screenreel/internal/tui/styles"
	"github.com/Iron-Ham/screenreel/internal/util"
)

// Controller is the part of the application the recorder view drives.
type Controller interface {
	RecordingState() recording.State
	RecordingElapsed() time.Duration
	PauseRecording() error
	ResumeRecording() error
	StopRecording() (string, error)
	ToggleZoom(scale float64) (*recording.ZoomMarker, error)
	ZoomMarkers() []recording.ZoomMarker
}

const refreshInterval = 200 * time.Millisecond

type tickMsg time.Time

type stoppedMsg struct {
	path string
	err  error
}

// busMsg carries one event received from the application's event bus.
type busMsg struct {
	event event.Event
}

// Recorder is the Bubbletea model for an active recording.
type Recorder struct {
	ctrl       Controller
	outputPath string
	events     <-chan event.Event

	width  int
	height int

	scaleInput textinput.Model
	prompting  bool

	infoMsg  string
	errorMsg string

	stopping    bool
	done        bool
	stoppedPath string
	stopErr     error
}

// NewRecorder creates the view for the recording writing to outputPath.
func NewRecorder(ctrl Controller, outputPath string) Recorder {
	ti := textinput.New()
	ti.Placeholder = "2.0"
	ti.CharLimit = 6
	ti.Width = 8
	ti.Prompt = "scale: "

	return Recorder{
		ctrl:       ctrl,
		outputPath: outputPath,
		scaleInput: ti,
	}
}

// WithEvents feeds the view zoom, state and encoder events from the bus.
func (r Recorder) WithEvents(events <-chan event.Event) Recorder {
	r.events = events
	return r
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForEvent reads the next bus event. It yields nil once the stream is
// closed, which ends the wait loop.
func waitForEvent(events <-chan event.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return busMsg{event: e}
	}
}

func (r Recorder) Init() tea.Cmd {
	return tea.Batch(tick(), waitForEvent(r.events))
}

func (r Recorder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		return r, nil

	case tickMsg:
		if r.done {
			return r, nil
		}
		return r, tick()

	case stoppedMsg:
		r.stopping = false
		r.done = true
		r.stoppedPath = msg.path
		r.stopErr = msg.err
		return r, tea.Quit

	case busMsg:
		return r.handleEvent(msg.event)

	case tea.KeyMsg:
		if r.stopping || r.done {
			return r, nil
		}
		r.infoMsg = ""
		r.errorMsg = ""
		if r.prompting {
			return r.handlePromptKey(msg)
		}
		return r.handleKey(msg)
	}
	return r, nil
}

func (r Recorder) handleEvent(e event.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(r.events)
	if r.done {
		return r, nil
	}
	switch e := e.(type) {
	case event.ZoomToggledEvent:
		if !e.Open {
			r.infoMsg = fmt.Sprintf("Zoom %.1fx saved (%s)", e.Scale, formatSpan(e.StartMs, e.EndMs))
		}

	case event.EncoderExitedEvent:
		if e.Err != nil {
			r.errorMsg = e.Err.Error()
		}

	case event.RecordingStateChangedEvent:
		// Stopped elsewhere, for example by a signal handler.
		if e.Current == recording.StateIdle.String() && !r.stopping {
			r.done = true
			r.stoppedPath = e.OutputPath
			return r, tea.Quit
		}
	}
	return r, next
}

func (r Recorder) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "s", "ctrl+c":
		return r.stop()

	case " ", "p":
		var err error
		if r.ctrl.RecordingState() == recording.StatePaused {
			err = r.ctrl.ResumeRecording()
			r.infoMsg = "Resumed"
		} else {
			err = r.ctrl.PauseRecording()
			r.infoMsg = "Paused"
		}
		if err != nil {
			r.infoMsg = ""
			r.errorMsg = err.Error()
		}

	case "z":
		r.toggleZoom(0)

	case "Z":
		r.prompting = true
		r.scaleInput.SetValue("")
		cmd := r.scaleInput.Focus()
		return r, cmd
	}
	return r, nil
}

func (r Recorder) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		r.prompting = false
		r.scaleInput.Blur()
		return r, nil

	case "enter":
		scale, err := recording.ParseZoomScale(r.scaleInput.Value())
		if err != nil {
			r.errorMsg = err.Error()
			return r, nil
		}
		r.prompting = false
		r.scaleInput.Blur()
		r.toggleZoom(scale)
		return r, nil
	}

	var cmd tea.Cmd
	r.scaleInput, cmd = r.scaleInput.Update(msg)
	return r, cmd
}

func (r *Recorder) toggleZoom(scale float64) {
	m, err := r.ctrl.ToggleZoom(scale)
	switch {
	case err != nil:
		r.errorMsg = err.Error()
	case m != nil:
		r.infoMsg = fmt.Sprintf("Zoom %.1fx at (%.0f%%, %.0f%%)", m.Scale, m.X, m.Y)
	case r.events == nil:
		r.infoMsg = "Zoom closed"
	}
}

// stop finishes the recording off the UI goroutine; the encoder may take
// several seconds to flush.
func (r Recorder) stop() (tea.Model, tea.Cmd) {
	r.stopping = true
	ctrl := r.ctrl
	return r, func() tea.Msg {
		path, err := ctrl.StopRecording()
		return stoppedMsg{path: path, err: err}
	}
}

func (r Recorder) View() string {
	if r.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("screenreel"))
	b.WriteString("\n")

	state := r.ctrl.RecordingState()
	b.WriteString(styles.StateBadge(state.String()))
	b.WriteString(styles.Text.Render(formatElapsed(r.ctrl.RecordingElapsed())))
	b.WriteString("\n\n")

	b.WriteString(styles.Muted.Render("Output: " + util.TruncatePath(r.outputPath, r.width-len("Output: "))))
	b.WriteString("\n")
	b.WriteString(r.renderZoom())
	b.WriteString("\n")

	if r.prompting {
		b.WriteString("\n")
		b.WriteString(r.scaleInput.View())
		b.WriteString("\n")
	}
	if r.stopping {
		b.WriteString("\n")
		b.WriteString(styles.WarningMsg.Render("Finishing recording..."))
		b.WriteString("\n")
	}
	if r.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(r.fit(styles.ErrorMsg.Render("Error: " + r.errorMsg)))
		b.WriteString("\n")
	}
	if r.infoMsg != "" {
		b.WriteString("\n")
		b.WriteString(r.fit(styles.SuccessMsg.Render(r.infoMsg)))
		b.WriteString("\n")
	}

	b.WriteString(r.renderHelp())
	return b.String()
}

// fit cuts a styled line to the terminal width once it is known.
func (r Recorder) fit(line string) string {
	if r.width <= 0 {
		return line
	}
	return util.TruncateANSI(line, r.width)
}

func (r Recorder) renderZoom() string {
	markers := r.ctrl.ZoomMarkers()
	closed := 0
	var open *recording.ZoomMarker
	for i := range markers {
		if markers[i].Open() {
			open = &markers[i]
			continue
		}
		closed++
	}

	line := fmt.Sprintf("Zoom markers: %d", closed)
	if open != nil {
		line += "  " + styles.Warning.Bold(true).Render(fmt.Sprintf("ZOOM %.1fx", open.Scale))
	}
	return styles.Muted.Render(line)
}

func (r Recorder) renderHelp() string {
	key := styles.HelpKey.Render
	if r.prompting {
		return styles.HelpBar.Render(key("enter") + " zoom  " + key("esc") + " cancel")
	}
	return styles.HelpBar.Render(
		key("space") + " pause/resume  " +
			key("z") + " zoom  " +
			key("Z") + " zoom with scale  " +
			key("s/q") + " stop",
	)
}

// formatElapsed renders d as MM:SS, or H:MM:SS past an hour.
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatSpan renders a marker's start and end offsets in seconds.
func formatSpan(startMs, endMs uint64) string {
	return fmt.Sprintf("%.1fs-%.1fs", float64(startMs)/1000, float64(endMs)/1000)
}

// Result returns the stopped recording's path and the error Stop reported.
func (r Recorder) Result() (string, error) {
	return r.stoppedPath, r.stopErr
}

// RunRecorder shows the recorder view until the recording is stopped and
// returns the stopped path and error. events may be nil.
func RunRecorder(ctrl Controller, outputPath string, events <-chan event.Event) (string, error) {
	p := tea.NewProgram(NewRecorder(ctrl, outputPath).WithEvents(events), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	r, ok := final.(Recorder)
	if !ok || !r.done {
		return ctrl.StopRecording()
	}
	return r.Result()
}
