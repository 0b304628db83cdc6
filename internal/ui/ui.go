package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Dicklesworthstone/sysmon/internal/config"
	"github.com/Dicklesworthstone/sysmon/internal/model"
	"github.com/Dicklesworthstone/sysmon/internal/snapshot"
)

// Status reports whether sampling has ended with a fault.
type Status interface {
	Err() error
}

// Model renders the latest published snapshot. It only reads the store.
type Model struct {
	cfg    config.Config
	store  *snapshot.Store
	status Status
	latest *model.Snapshot
	fault  error
	width  int
	height int
}

func New(cfg config.Config, store *snapshot.Store, status Status) *Model {
	return &Model{
		cfg:    cfg,
		store:  store,
		status: status,
		width:  120,
		height: 40,
	}
}

// Messages
type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.refresh()
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) refresh() {
	if snap, ok := m.store.Read(); ok {
		m.latest = snap
	}
	if m.status != nil {
		m.fault = m.status.Err()
	}
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparkLevels = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

const (
	gaugeWidth     = 28
	coreGaugeWidth = 10
)

func (m *Model) View() string {
	s := m.latest
	stamp := "waiting for first sample"
	if s != nil {
		stamp = s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006")
	}
	header := titleStyle.Render("System Monitor") + "  " + subtleStyle.Render(stamp)

	cards := lipgloss.JoinHorizontal(lipgloss.Top, m.cpuCard(s), m.memCard(s))
	parts := []string{header, cards}
	if m.fault != nil {
		parts = append(parts, errorStyle.Render("sampling stopped: "+m.fault.Error()))
	}
	parts = append(parts, subtleStyle.Render("q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) cpuCard(s *model.Snapshot) string {
	if s == nil || !s.HaveCPU {
		return card("CPU Usage", "--")
	}
	lines := []string{
		gaugeBar(s.CPU.Overall, gaugeWidth) + staleMark(s.CPUFresh),
		sparkline(values(s.CPUHistory), m.cfg.HistoryLength),
		axis(m.cfg.HistoryLength, s.Interval),
	}
	if m.cfg.PerCore && len(s.CPU.PerCore) > 0 {
		lines = append(lines, perCore(s.CPU.PerCore))
	}
	return card("CPU Usage", strings.Join(lines, "\n"))
}

func (m *Model) memCard(s *model.Snapshot) string {
	if s == nil || !s.HaveMemory {
		return card("Memory Usage", "--")
	}
	mem := s.Memory
	lines := []string{
		gaugeBar(mem.Percentage, gaugeWidth) + staleMark(s.MemoryFresh),
		sparkline(values(s.MemoryHistory), m.cfg.HistoryLength),
		axis(m.cfg.HistoryLength, s.Interval),
		fmt.Sprintf("Used %s   Total %s   Free %s",
			humanize.IBytes(mem.Used), humanize.IBytes(mem.Total), humanize.IBytes(mem.Free())),
	}
	return card("Memory Usage", strings.Join(lines, "\n"))
}

// Helpers
func gaugeBar(pct float64, width int) string {
	pct = model.Clamp(pct)
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

// sparkline draws vals right-aligned in width cells, newest on the right.
func sparkline(vals []float64, width int) string {
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(vals)))
	top := float64(len(sparkLevels) - 1)
	for _, v := range vals {
		b.WriteRune(sparkLevels[int(model.Clamp(v)/100*top+0.5)])
	}
	return b.String()
}

// axis labels the oldest and newest sparkline columns in seconds.
func axis(width int, interval time.Duration) string {
	left := fmt.Sprintf("%gs", -float64(width-1)*interval.Seconds())
	right := "0s"
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	return subtleStyle.Render(left + strings.Repeat(" ", pad) + right)
}

func perCore(cores []float64) string {
	const perRow = 2
	rows := make([]string, 0, (len(cores)+perRow-1)/perRow)
	var row []string
	for i, v := range cores {
		row = append(row, fmt.Sprintf("Core %-3d %s", i, gaugeBar(v, coreGaugeWidth)))
		if len(row) == perRow || i == len(cores)-1 {
			rows = append(rows, strings.Join(row, "  "))
			row = row[:0]
		}
	}
	return strings.Join(rows, "\n")
}

func staleMark(fresh bool) string {
	if fresh {
		return ""
	}
	return subtleStyle.Render(" (stale)")
}

func values(samples []model.TimeSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(cfg config.Config, store *snapshot.Store, status Status) error {
	prog := tea.NewProgram(New(cfg, store, status), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
