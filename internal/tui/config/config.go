// Package config implements the interactive configuration editor behind
// `screenreel config` when it runs without a subcommand.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/tui/styles"
)

// ConfigItem represents a single configuration item
type ConfigItem struct {
	Key         string
	Label       string
	Description string
	Type        string   // "string", "bool", "int", "float", "select"
	Options     []string // For select type
}

// Category represents a group of config items
type Category struct {
	Name  string
	Items []ConfigItem
}

// Model is the Bubbletea model for the interactive config UI
type Model struct {
	categories     []Category
	categoryIndex  int
	itemIndex      int
	scrollOffset   int
	width          int
	height         int
	editing        bool
	textInput      textinput.Model
	selectIndex    int
	errorMsg       string
	infoMsg        string
	quitting       bool
	configModified bool
}

// Lines reserved for the header, description, messages and help bar.
const chromeLines = 12

func categories() []Category {
	return []Category{
		{
			Name: "Capture",
			Items: []ConfigItem{
				{Key: "capture.default_fps", Label: "Default FPS", Description: "Preview frame rate when a capture request omits one", Type: "int"},
				{Key: "capture.max_fps", Label: "Max FPS", Description: "Upper bound for every preview frame rate", Type: "int"},
				{Key: "capture.default_width", Label: "Default Width", Description: "Nominal preview frame width in pixels", Type: "int"},
				{Key: "capture.default_height", Label: "Default Height", Description: "Nominal preview frame height in pixels", Type: "int"},
				{Key: "capture.jpeg_quality", Label: "JPEG Quality", Description: "Quality of encoded preview frames (1-100)", Type: "int"},
			},
		},
		{
			Name: "Cursor",
			Items: []ConfigItem{
				{Key: "cursor.sample_interval_ms", Label: "Sample Interval (ms)", Description: "Delay between pointer samples while recording", Type: "int"},
			},
		},
		{
			Name: "Recording",
			Items: []ConfigItem{
				{Key: "recording.output_dir", Label: "Output Directory", Description: "Where recordings are written (empty = ~/Movies/screenreel)", Type: "string"},
				{Key: "recording.default_zoom_scale", Label: "Default Zoom Scale", Description: "Zoom factor used when a toggle does not name one", Type: "float"},
				{Key: "recording.fps", Label: "Recording FPS", Description: "Frame rate passed to the encoder", Type: "int"},
			},
		},
		{
			Name: "Encoder",
			Items: []ConfigItem{
				{Key: "encoder.ffmpeg_path", Label: "ffmpeg Path", Description: "ffmpeg binary, looked up in PATH when not absolute", Type: "string"},
				{Key: "encoder.ffprobe_path", Label: "ffprobe Path", Description: "ffprobe binary used to probe recordings before a merge", Type: "string"},
				{Key: "encoder.video_codec", Label: "Video Codec", Description: "Encoder codec (empty = platform default)", Type: "string"},
				{Key: "encoder.video_bitrate", Label: "Video Bitrate", Description: "Target video bitrate such as 12M", Type: "string"},
				{Key: "encoder.audio_bitrate", Label: "Audio Bitrate", Description: "AAC bitrate when a microphone is recorded", Type: "string"},
				{Key: "encoder.stop_timeout_ms", Label: "Stop Timeout (ms)", Description: "How long ffmpeg may take to finish before it is killed", Type: "int"},
				{Key: "encoder.stderr_tail_bytes", Label: "Stderr Tail (bytes)", Description: "Trailing ffmpeg output kept for error reports", Type: "int"},
			},
		},
		{
			Name: "Logging",
			Items: []ConfigItem{
				{Key: "logging.enabled", Label: "Enabled", Description: "Write a JSON debug log", Type: "bool"},
				{Key: "logging.level", Label: "Level", Description: "Minimum level written to the log", Type: "select", Options: config.ValidLogLevels()},
				{Key: "logging.max_size_mb", Label: "Max Size (MB)", Description: "Rotate debug.log past this size", Type: "int"},
				{Key: "logging.max_backups", Label: "Max Backups", Description: "Rotated log files to keep", Type: "int"},
				{Key: "logging.compress", Label: "Compress", Description: "Gzip rotated log files", Type: "bool"},
				{Key: "logging.dir", Label: "Log Directory", Description: "Where debug.log is written (empty = config dir)", Type: "string"},
			},
		},
	}
}

// New creates a new config model
func New() Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 40

	return Model{
		categories: categories(),
		textInput:  ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureSelectionVisible(m.availableLines())
		return m, nil

	case tea.KeyMsg:
		m.errorMsg = ""
		m.infoMsg = ""

		if m.editing {
			return m.handleEditingKeypress(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			m.move(-1)

		case "down", "j":
			m.move(1)

		case "ctrl+d", "pgdown":
			m.move(max(1, m.availableLines()/2))

		case "ctrl+u", "pgup":
			m.move(-max(1, m.availableLines()/2))

		case "g", "home":
			m.categoryIndex, m.itemIndex = 0, 0

		case "G", "end":
			m.categoryIndex = len(m.categories) - 1
			m.itemIndex = len(m.categories[m.categoryIndex].Items) - 1

		case "tab":
			m.categoryIndex = (m.categoryIndex + 1) % len(m.categories)
			m.itemIndex = 0

		case "shift+tab":
			m.categoryIndex = (m.categoryIndex - 1 + len(m.categories)) % len(m.categories)
			m.itemIndex = 0

		case "enter", " ":
			item := m.currentItem()
			switch item.Type {
			case "bool":
				if err := m.validateAndSet(item, strconv.FormatBool(!viper.GetBool(item.Key))); err != nil {
					m.errorMsg = err.Error()
					break
				}
				m.saveConfig()
			case "select":
				m.editing = true
				m.selectIndex = m.getCurrentSelectIndex()
			default:
				m.editing = true
				m.textInput.SetValue(m.getCurrentValue())
				m.textInput.Focus()
			}

		case "r":
			m.resetCurrentToDefault()
		}
		m.ensureSelectionVisible(m.availableLines())
	}

	return m, nil
}

// move shifts the selection by delta items across category boundaries,
// wrapping at single steps and clamping for larger jumps.
func (m *Model) move(delta int) {
	flat := m.flatIndex() + delta
	total := m.totalItems()
	switch {
	case delta == 1 || delta == -1:
		flat = (flat + total) % total
	default:
		flat = max(0, min(total-1, flat))
	}
	m.setFlatIndex(flat)
}

func (m Model) totalItems() int {
	n := 0
	for _, c := range m.categories {
		n += len(c.Items)
	}
	return n
}

func (m Model) flatIndex() int {
	n := 0
	for i := 0; i < m.categoryIndex; i++ {
		n += len(m.categories[i].Items)
	}
	return n + m.itemIndex
}

func (m *Model) setFlatIndex(flat int) {
	for ci, c := range m.categories {
		if flat < len(c.Items) {
			m.categoryIndex, m.itemIndex = ci, flat
			return
		}
		flat -= len(c.Items)
	}
}

// totalLines counts the rendered list: a header, the items and a blank line
// per category.
func (m Model) totalLines() int {
	n := 0
	for _, c := range m.categories {
		n += len(c.Items) + 2
	}
	return n
}

// currentSelectionLine is the list line of the selected item.
func (m Model) currentSelectionLine() int {
	line := 0
	for i := 0; i < m.categoryIndex; i++ {
		line += len(m.categories[i].Items) + 2
	}
	return line + 1 + m.itemIndex
}

func (m Model) availableLines() int {
	return max(5, m.height-chromeLines)
}

func (m *Model) ensureSelectionVisible(available int) {
	line := m.currentSelectionLine()
	if line < m.scrollOffset {
		m.scrollOffset = line
	}
	if line >= m.scrollOffset+available {
		m.scrollOffset = line - available + 1
	}
	m.scrollOffset = max(0, min(m.scrollOffset, m.totalLines()-available))
	if line < m.scrollOffset {
		m.scrollOffset = line
	}
}

func (m *Model) handleEditingKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.currentItem()

	switch msg.String() {
	case "esc":
		m.editing = false
		m.textInput.SetValue("")
		return *m, nil

	case "enter":
		value := m.textInput.Value()
		if item.Type == "select" {
			value = item.Options[m.selectIndex]
		}
		if err := m.validateAndSet(item, value); err != nil {
			m.errorMsg = err.Error()
			return *m, nil
		}
		m.saveConfig()
		m.editing = false
		m.textInput.SetValue("")
		return *m, nil

	case "up", "k":
		if item.Type == "select" {
			m.selectIndex = (m.selectIndex - 1 + len(item.Options)) % len(item.Options)
			return *m, nil
		}

	case "down", "j":
		if item.Type == "select" {
			m.selectIndex = (m.selectIndex + 1) % len(item.Options)
			return *m, nil
		}
	}

	if item.Type != "select" {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return *m, cmd
	}
	return *m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(styles.Header.Width(m.width - 4).Render("screenreel Configuration"))
	b.WriteString("\n\n")

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPath = config.ConfigFile() + " (not created)"
	}
	b.WriteString(styles.Muted.Render("Config file: " + configPath))
	b.WriteString("\n\n")

	available := m.availableLines()
	m.ensureSelectionVisible(available)
	lines := m.renderLines()
	end := min(len(lines), m.scrollOffset+available)

	if m.scrollOffset > 0 {
		b.WriteString(styles.Muted.Render("  ▲ more"))
	}
	b.WriteString("\n")
	for _, line := range lines[m.scrollOffset:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if end < len(lines) {
		b.WriteString(styles.Muted.Render("  ▼ more"))
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.renderEditOverlay())
	} else {
		b.WriteString(styles.Muted.Render(m.currentItem().Description))
		b.WriteString("\n")
	}

	if m.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render("Error: " + m.errorMsg))
	}
	if m.infoMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessMsg.Render(m.infoMsg))
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderLines() []string {
	lines := make([]string, 0, m.totalLines())
	for ci, cat := range m.categories {
		active := ci == m.categoryIndex
		catStyle := styles.Muted.Bold(true)
		if active {
			catStyle = styles.Primary.Bold(true)
		}
		lines = append(lines, catStyle.Render(fmt.Sprintf("[ %s ]", cat.Name)))
		for ii, item := range cat.Items {
			lines = append(lines, m.renderItem(item, active && ii == m.itemIndex))
		}
		lines = append(lines, "")
	}
	return lines
}

func (m Model) renderItem(item ConfigItem, selected bool) string {
	label := item.Label
	if len(label) > 25 {
		label = label[:22] + "..."
	}
	padded := fmt.Sprintf("%-25s", label)
	value := m.getDisplayValue(item)

	if selected {
		return fmt.Sprintf("  %s %s  %s",
			styles.Secondary.Render(">"),
			styles.Text.Bold(true).Render(padded),
			styles.Primary.Render(value))
	}
	return fmt.Sprintf("    %s  %s", styles.Muted.Render(padded), styles.Text.Render(value))
}

func (m Model) renderEditOverlay() string {
	item := m.currentItem()
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.PrimaryColor).
		Padding(1, 2).
		Width(50)

	var content strings.Builder
	if item.Type == "select" {
		fmt.Fprintf(&content, "Select %s:\n\n", item.Label)
		for i, opt := range item.Options {
			if i == m.selectIndex {
				content.WriteString(styles.DropdownItemSelected.Render(" > "+opt+" ") + "\n")
			} else {
				content.WriteString(styles.DropdownItem.Render("   "+opt+" ") + "\n")
			}
		}
		content.WriteString("\n" + styles.Muted.Render("j/k or arrows to select, enter to confirm, esc to cancel"))
	} else {
		fmt.Fprintf(&content, "Edit %s:\n\n", item.Label)
		content.WriteString(m.textInput.View())
		content.WriteString("\n\n" + styles.Muted.Render("enter to save, esc to cancel"))
	}
	return "\n" + border.Render(content.String())
}

func (m Model) renderHelp() string {
	key := styles.HelpKey.Render
	if m.editing {
		return styles.HelpBar.Render(key("enter") + " save  " + key("esc") + " cancel")
	}
	return styles.HelpBar.Render(
		key("j/k") + " navigate  " +
			key("tab") + " next category  " +
			key("enter/space") + " edit  " +
			key("r") + " reset  " +
			key("q") + " quit",
	)
}

func (m Model) currentItem() ConfigItem {
	return m.categories[m.categoryIndex].Items[m.itemIndex]
}

func (m Model) getCurrentValue() string {
	return m.getDisplayValue(m.currentItem())
}

func (m Model) getDisplayValue(item ConfigItem) string {
	switch item.Type {
	case "bool":
		return strconv.FormatBool(viper.GetBool(item.Key))
	case "int":
		return strconv.Itoa(viper.GetInt(item.Key))
	case "float":
		return strconv.FormatFloat(viper.GetFloat64(item.Key), 'f', -1, 64)
	default:
		return viper.GetString(item.Key)
	}
}

func (m Model) getCurrentSelectIndex() int {
	item := m.currentItem()
	if i := slices.Index(item.Options, viper.GetString(item.Key)); i >= 0 {
		return i
	}
	return 0
}

// validateAndSet applies value to item, leaving the previous value in place
// when it does not parse or fails validation.
func (m *Model) validateAndSet(item ConfigItem, value string) error {
	if item.Type == "select" && !slices.Contains(item.Options, value) {
		return fmt.Errorf("invalid option: %s", value)
	}
	_, err := config.SetValue(item.Key, value)
	return err
}

func (m *Model) saveConfig() {
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		m.errorMsg = fmt.Sprintf("Failed to create config directory: %v", err)
		return
	}
	if err := viper.WriteConfigAs(config.ConfigFile()); err != nil {
		m.errorMsg = fmt.Sprintf("Failed to save config: %v", err)
		return
	}
	m.infoMsg = "Saved!"
	m.configModified = true
}

// defaultValues maps every editable key to its default.
func defaultValues() map[string]any {
	d := config.Default()
	return map[string]any{
		"capture.default_fps":          d.Capture.DefaultFPS,
		"capture.max_fps":              d.Capture.MaxFPS,
		"capture.default_width":        d.Capture.DefaultWidth,
		"capture.default_height":       d.Capture.DefaultHeight,
		"capture.jpeg_quality":         d.Capture.JPEGQuality,
		"cursor.sample_interval_ms":    d.Cursor.SampleIntervalMs,
		"recording.output_dir":         d.Recording.OutputDir,
		"recording.default_zoom_scale": d.Recording.DefaultZoomScale,
		"recording.fps":                d.Recording.FPS,
		"encoder.ffmpeg_path":          d.Encoder.FFmpegPath,
		"encoder.ffprobe_path":         d.Encoder.FFprobePath,
		"encoder.video_codec":          d.Encoder.VideoCodec,
		"encoder.video_bitrate":        d.Encoder.VideoBitrate,
		"encoder.audio_bitrate":        d.Encoder.AudioBitrate,
		"encoder.stop_timeout_ms":      d.Encoder.StopTimeoutMs,
		"encoder.stderr_tail_bytes":    d.Encoder.StderrTailBytes,
		"logging.enabled":              d.Logging.Enabled,
		"logging.level":                d.Logging.Level,
		"logging.max_size_mb":          d.Logging.MaxSizeMB,
		"logging.max_backups":          d.Logging.MaxBackups,
		"logging.compress":             d.Logging.Compress,
		"logging.dir":                  d.Logging.Dir,
	}
}

func (m *Model) resetCurrentToDefault() {
	item := m.currentItem()
	if v, ok := defaultValues()[item.Key]; ok {
		viper.Set(item.Key, v)
		m.saveConfig()
		m.infoMsg = fmt.Sprintf("Reset %s to default", item.Label)
	}
}

// Run starts the interactive config UI
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
