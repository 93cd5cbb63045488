package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/logger"
	"github.com/rovshanmuradov/solana-txflow/internal/transaction"
)

const (
	logTickInterval = 250 * time.Millisecond
	visibleLogLines = 6
)

// ResultMsg is delivered when the submission returns.
type ResultMsg struct {
	Result transaction.Result
}

type logTickMsg time.Time

// TransferModel renders the progress of a single submission: the sender
// phase, the broadcast signature, rebuilds and the tail of the log.
type TransferModel struct {
	title   string
	spinner spinner.Model
	updates *UpdateSender
	ring    *logger.Ring
	run     func() transaction.Result
	cancel  func()

	phase     string
	signature string
	attempt   int
	rebuilds  int
	logs      []logger.LogEntry
	started   time.Time
	elapsed   time.Duration
	result    *transaction.Result
}

// NewTransferModel creates the model. run performs the submission and is
// started by Init; cancel aborts it when the user quits early. ring may be
// nil.
func NewTransferModel(title string, updates *UpdateSender, ring *logger.Ring, run func() transaction.Result, cancel func()) *TransferModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Cyan)

	return &TransferModel{
		title:   title,
		spinner: s,
		updates: updates,
		ring:    ring,
		run:     run,
		cancel:  cancel,
		phase:   transaction.PhaseIdle.String(),
		started: time.Now(),
	}
}

// Result returns the submission outcome once it is known.
func (m *TransferModel) Result() (transaction.Result, bool) {
	if m.result == nil {
		return transaction.Result{}, false
	}
	return *m.result, true
}

func (m *TransferModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.updates.Listen(),
		logTick(),
		func() tea.Msg { return ResultMsg{Result: m.run()} },
	)
}

func (m *TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.result == nil && m.cancel != nil {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.result != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.applyEvent(msg.Event)
		return m, m.updates.Listen()

	case logTickMsg:
		m.refreshLogs()
		if m.result != nil {
			return m, nil
		}
		return m, logTick()

	case ResultMsg:
		res := msg.Result
		m.result = &res
		m.elapsed = time.Since(m.started)
		m.phase = transaction.PhaseIdle.String()
		if res.OK() {
			m.signature = res.Signature.String()
		}
		m.refreshLogs()
		return m, tea.Quit
	}
	return m, nil
}

func (m *TransferModel) applyEvent(event events.Event) {
	switch e := event.(type) {
	case *events.PhaseChangedEvent:
		if m.result == nil {
			m.phase = e.To
		}
	case *events.TxSubmittedEvent:
		m.signature = e.Signature
		m.attempt = e.Attempt
	case *events.TxRebuiltEvent:
		m.rebuilds++
		m.attempt = e.Attempt
	}
}

func (m *TransferModel) refreshLogs() {
	if m.ring == nil {
		return
	}
	m.logs = m.ring.Recent(visibleLogLines)
}

func (m *TransferModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	phase := lipgloss.NewStyle().Bold(true).Foreground(phaseColor(m.phase)).Render(m.phase)
	if m.result == nil {
		phase = m.spinner.View() + " " + phase
	}
	b.WriteString(row("Phase", phase))

	sig := "-"
	if m.signature != "" {
		sig = logger.ShortenSignature(m.signature)
	}
	b.WriteString(row("Signature", sig))
	if m.attempt > 0 {
		b.WriteString(row("Attempt", fmt.Sprintf("%d", m.attempt)))
	}
	if m.rebuilds > 0 {
		b.WriteString(row("Rebuilds", warnStyle.Render(fmt.Sprintf("%d", m.rebuilds))))
	}

	if m.result != nil {
		b.WriteString(row("Elapsed", m.elapsed.Round(time.Millisecond).String()))
		b.WriteString("\n")
		if m.result.OK() {
			b.WriteString(successStyle.Render("✓ confirmed " + m.result.Signature.String()))
		} else {
			b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", m.result.Err.Code, m.result.Err.Message)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(logStyle.Render("q to cancel"))
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		lines := make([]string, 0, len(m.logs))
		for _, entry := range m.logs {
			lines = append(lines, logStyle.Render(fmt.Sprintf("%s %-5s %s",
				entry.Timestamp.Format("15:04:05"), strings.ToUpper(entry.Level), entry.Message)))
		}
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func logTick() tea.Cmd {
	return tea.Tick(logTickInterval, func(t time.Time) tea.Msg {
		return logTickMsg(t)
	})
}
