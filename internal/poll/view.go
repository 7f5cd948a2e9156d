package poll

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ioctest/internal/color"
	"ioctest/pkg/logging"
)

const (
	maxHistory  = 12
	maxLogLines = 8
)

type sampleMsg Sample

type pollDoneMsg struct{}

type logEntryMsg logging.LogEntry

// Model is the bubbletea model of the poll view.
type Model struct {
	target   Target
	interval string
	spinner  spinner.Model
	styles   color.Styles

	samples <-chan Sample
	logs    <-chan logging.LogEntry
	cancel  context.CancelFunc

	last     *Sample
	history  []string
	count    int
	failures int
	logLines []string
	done     bool
}

// NewModel builds a view that consumes samples until the channel closes.
// cancel is invoked when the operator quits.
func NewModel(p *Poller, samples <-chan Sample, logs <-chan logging.LogEntry, cancel context.CancelFunc, styles color.Styles) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Value

	return Model{
		target:   p.target,
		interval: p.opts.Interval.String(),
		spinner:  s,
		styles:   styles,
		samples:  samples,
		logs:     logs,
		cancel:   cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSample(m.samples), waitForLog(m.logs))
}

func waitForSample(ch <-chan Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return pollDoneMsg{}
		}
		return sampleMsg(s)
	}
}

func waitForLog(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg(e)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			return m, tea.Quit
		}
	case sampleMsg:
		s := Sample(msg)
		m.last = &s
		m.count++
		if s.Err != nil {
			m.failures++
			m.history = append(m.history, "-")
		} else {
			m.history = append(m.history, fmt.Sprint(s.Value))
		}
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, waitForSample(m.samples)
	case pollDoneMsg:
		m.done = true
		return m, tea.Quit
	case logEntryMsg:
		line := fmt.Sprintf("[%s] %s %s: %s", msg.Timestamp.Format("15:04:05"), msg.Level, msg.Subsystem, msg.Message)
		if msg.Err != nil {
			line += ": " + msg.Err.Error()
		}
		m.logLines = append(m.logLines, line)
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, waitForLog(m.logs)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Polling %s every %s", m.target, m.interval)))
	b.WriteString("\n\n")

	indicator := m.spinner.View()
	if m.done {
		indicator = " "
	}
	switch {
	case m.last == nil:
		b.WriteString(fmt.Sprintf("%s waiting for first reading", indicator))
	case m.last.Err != nil:
		b.WriteString(fmt.Sprintf("%s %s", indicator, m.styles.Fail.Render(m.last.Err.Error())))
	default:
		value := fmt.Sprint(m.last.Value)
		if v, ok := m.last.Volts(); ok {
			value = fmt.Sprintf("%d (%.3fV)", m.last.Value, v)
		}
		b.WriteString(fmt.Sprintf("%s value: %s", indicator, m.styles.Value.Render(value)))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Detail.Render(fmt.Sprintf("samples: %d  timeouts: %d", m.count, m.failures)))
	b.WriteString("\n")
	if len(m.history) > 0 {
		b.WriteString(m.styles.Muted.Render("history: " + strings.Join(m.history, " ")))
		b.WriteString("\n")
	}

	if len(m.logLines) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, m.logLines...))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

// RunView polls behind a bubbletea status view until the operator quits or
// ctx is cancelled. logs may be nil.
func RunView(ctx context.Context, p *Poller, logs <-chan logging.LogEntry, styles color.Styles) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make(chan Sample)
	pollErr := make(chan error, 1)
	go func() {
		defer close(samples)
		pollErr <- p.Run(ctx, func(s Sample) {
			select {
			case samples <- s:
			case <-ctx.Done():
			}
		})
	}()

	program := tea.NewProgram(NewModel(p, samples, logs, cancel, styles), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		cancel()
		<-pollErr
		return fmt.Errorf("poll view failed: %w", err)
	}
	cancel()
	return <-pollErr
}
