// Package tui renders a quiz attempt in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/pkg/errors"

	"quiz-player/internal/domain"
	"quiz-player/internal/player"
)

// snapshotMsg wakes the model after the controller changed.
type snapshotMsg struct{}

// opDoneMsg reports the end of a blocking controller call.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the root Bubble Tea model of the player.
type Model struct {
	ctx     context.Context
	ctrl    *player.Controller
	updates <-chan player.Snapshot

	snap   player.Snapshot
	shown  string
	cursor int
	input  textinput.Model
	notice string
	width  int
	height int
}

// New builds the model. updates is usually the channel from ctrl.Subscribe.
func New(ctx context.Context, ctrl *player.Controller, updates <-chan player.Snapshot) Model {
	in := textinput.New()
	in.Placeholder = "Type your answer"
	in.CharLimit = 500

	m := Model{ctx: ctx, ctrl: ctrl, updates: updates, input: in}
	return m.refresh()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.run("start", m.ctrl.Start))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		return m.refresh(), m.listen()

	case opDoneMsg:
		m.notice = ""
		if msg.err != nil && domain.KindOf(msg.err) == 0 &&
			!errors.Is(msg.err, domain.ErrSessionClosed) && !errors.Is(msg.err, domain.ErrSubmissionInFlight) {
			m.notice = msg.op + ": " + msg.err.Error()
		}
		return m.refresh(), nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// listen waits for the next controller change.
func (m Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return snapshotMsg{}
	}
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// refresh reads the controller and rebuilds the widgets when the
// current question changed.
func (m Model) refresh() Model {
	m.snap = m.ctrl.Snapshot()
	q := m.snap.Question
	if q.ID == m.shown {
		return m
	}
	m.shown = q.ID
	m.cursor = 0
	for i, opt := range q.Options {
		if m.snap.Answer.Selected(opt.ID) {
			m.cursor = i
			break
		}
	}
	if q.Kind.IsChoice() {
		m.input.Blur()
		m.input.SetValue("")
		return m
	}
	value, _ := m.snap.Answer.Text()
	m.input.SetValue(value)
	m.input.Focus()
	return m
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if !m.snap.Phase.Terminal() {
			_ = m.ctrl.Abandon()
		}
		return m, tea.Quit
	}

	switch m.snap.Phase {
	case player.PhaseNotStarted:
		switch key {
		case "r", "enter":
			if !m.snap.InFlight && m.snap.Err != nil {
				return m, m.run("start", m.ctrl.Start)
			}
		case "q", "esc":
			return m, tea.Quit
		}
	case player.PhaseInProgress:
		if m.snap.InFlight {
			return m, nil
		}
		return m.questionKey(msg)
	case player.PhaseAwaitingConfirmation:
		if m.snap.InFlight {
			return m, nil
		}
		switch key {
		case "y", "enter":
			if domain.KindOf(m.snap.Err) == domain.FinalizeFailure {
				return m, m.run("submit", m.ctrl.RetryFinalize)
			}
			return m, m.run("submit", m.ctrl.ConfirmSubmit)
		case "n", "esc":
			m.fail(m.ctrl.CancelSubmit())
			return m.refresh(), nil
		}
	default:
		switch key {
		case "q", "enter", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) questionKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	q := m.snap.Question
	key := msg.String()
	m.notice = ""

	switch key {
	case "tab", "enter":
		m.fail(m.ctrl.GoNext())
		return m.refresh(), nil
	case "shift+tab":
		if m.snap.Index > 0 {
			m.fail(m.ctrl.GoPrevious())
		}
		return m.refresh(), nil
	case "ctrl+t":
		return m.hint(), nil
	case "ctrl+r":
		if domain.KindOf(m.snap.Err) == domain.FinalizeFailure {
			return m, m.run("submit", m.ctrl.RetryFinalize)
		}
		return m, nil
	}

	if q.Kind.IsChoice() {
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(q.Options)-1 {
				m.cursor++
			}
		case "space", " ", "x":
			m = m.choose(m.cursor)
		case "right", "n":
			m.fail(m.ctrl.GoNext())
		case "left", "p":
			if m.snap.Index > 0 {
				m.fail(m.ctrl.GoPrevious())
			}
		case "h", "?":
			m = m.hint()
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				if i := int(key[0] - '1'); i < len(q.Options) {
					m.cursor = i
					m = m.choose(i)
				}
			}
		}
		return m.refresh(), nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		answer := domain.TextAnswer(value)
		if strings.TrimSpace(value) == "" {
			answer = domain.Answer{}
		}
		m.fail(m.ctrl.Answer(q.ID, answer))
	}
	return m.refresh(), cmd
}

func (m Model) choose(i int) Model {
	q := m.snap.Question
	if i < 0 || i >= len(q.Options) {
		return m
	}
	id := q.Options[i].ID
	answer := domain.ChoiceAnswer(id)
	if q.AllowMultiple {
		answer = m.snap.Answer.Toggle(id)
		if len(answer.Options()) == 0 {
			answer = domain.Answer{}
		}
	}
	m.fail(m.ctrl.Answer(q.ID, answer))
	return m
}

func (m Model) hint() Model {
	_, err := m.ctrl.RequestHint(m.snap.Question.ID)
	if errors.Is(err, domain.ErrNoHints) {
		m.notice = "No hints for this question."
		return m
	}
	m.fail(err)
	return m
}

func (m *Model) fail(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.SetContent(m.render())
	return v
}

func (m Model) render() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case player.PhaseNotStarted:
		b.WriteString(m.renderStart())
	case player.PhaseInProgress:
		b.WriteString(cardStyle.Render(m.renderQuestion()))
	case player.PhaseAwaitingConfirmation:
		b.WriteString(cardStyle.Render(m.renderConfirm()))
	default:
		b.WriteString(cardStyle.Render(m.renderResult()))
	}
	b.WriteString("\n")

	if m.snap.Err != nil {
		b.WriteString("\n" + errorStyle.Render(m.snap.Err.Error()))
		if domain.KindOf(m.snap.Err).Retryable() && !m.snap.InFlight {
			b.WriteString("\n" + footerStyle.Render(retryHint(m.snap.Phase)))
		}
	}
	if m.notice != "" {
		b.WriteString("\n" + hintStyle.Render(m.notice))
	}
	if m.snap.FlushFailures > 0 && !m.snap.Phase.Terminal() {
		b.WriteString("\n" + hintStyle.Render(fmt.Sprintf("%d answer(s) not saved yet; they are sent again on submit.", m.snap.FlushFailures)))
	}
	b.WriteString("\n\n" + footerStyle.Render(m.keys()))
	return b.String()
}

func (m Model) header() string {
	title := m.snap.QuizTitle
	if title == "" {
		title = m.snap.QuizID
	}
	left := titleStyle.Render(title)
	if m.snap.AttemptNumber > 0 {
		left += subtitleStyle.Render(fmt.Sprintf("  attempt %d", m.snap.AttemptNumber))
	}
	if !m.snap.Phase.Terminal() && m.snap.Phase != player.PhaseNotStarted {
		left += subtitleStyle.Render(fmt.Sprintf("  %d/%d answered", m.snap.Answered, m.snap.Total))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.clock())
}

func (m Model) clock() string {
	if m.snap.Phase == player.PhaseNotStarted {
		return ""
	}
	if !m.snap.HasTimeLimit {
		return subtitleStyle.Render("elapsed " + formatSeconds(m.snap.ElapsedSeconds))
	}
	style := timerStyle
	if m.snap.RemainingSeconds <= 60 {
		style = lowTimeStyle
	}
	return style.Render("time left " + formatSeconds(m.snap.RemainingSeconds))
}

func (m Model) renderStart() string {
	if m.snap.InFlight {
		return subtitleStyle.Render("Starting attempt...")
	}
	if m.snap.Err != nil {
		return subtitleStyle.Render("Could not start the attempt.")
	}
	return subtitleStyle.Render("Connecting...")
}

func (m Model) renderQuestion() string {
	q := m.snap.Question
	var b strings.Builder
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Question %d of %d  ·  %s  ·  %d pt", m.snap.Index+1, m.snap.Total, kindLabel(q), q.PointValue())))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render(q.Prompt))
	b.WriteString("\n\n")

	if q.Kind.IsChoice() {
		for i, opt := range q.Options {
			mark := "( )"
			if q.AllowMultiple {
				mark = "[ ]"
			}
			if m.snap.Answer.Selected(opt.ID) {
				mark = "(•)"
				if q.AllowMultiple {
					mark = "[x]"
				}
			}
			line := fmt.Sprintf("%d. %s %s", i+1, mark, opt.Text)
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> "+line) + "\n")
			} else {
				b.WriteString(optionStyle.Render("  "+line) + "\n")
			}
		}
	} else {
		b.WriteString(m.input.View() + "\n")
	}

	if m.snap.Hint != nil {
		b.WriteString("\n" + hintStyle.Render(fmt.Sprintf("Hint %d: %s", m.snap.Hint.Index+1, m.snap.Hint.Text)))
	}
	if fb := m.snap.Feedback; fb != nil {
		verdict := errorStyle.Render("Incorrect")
		if fb.IsCorrect {
			verdict = okStyle.Render("Correct")
		}
		b.WriteString("\n" + verdict)
		if fb.Explanation != "" {
			b.WriteString(" " + hintStyle.Render(fb.Explanation))
		}
	}
	return b.String()
}

func (m Model) renderConfirm() string {
	if m.snap.InFlight {
		return subtitleStyle.Render("Submitting...")
	}
	unanswered := m.snap.Total - m.snap.Answered
	msg := promptStyle.Render("Submit your answers?")
	if unanswered > 0 {
		msg += "\n\n" + lowTimeStyle.Render(fmt.Sprintf("%d question(s) left unanswered.", unanswered))
	}
	return msg
}

func (m Model) renderResult() string {
	switch m.snap.Phase {
	case player.PhaseAbandoned:
		return subtitleStyle.Render("Attempt abandoned.")
	case player.PhaseTimedOut:
		if m.snap.Result == nil {
			return lowTimeStyle.Render("Time is up.")
		}
	}
	r := m.snap.Result
	if r == nil {
		return ""
	}
	verdict := errorStyle.Render("Not passed")
	if r.Passed {
		verdict = okStyle.Render("Passed")
	}
	heading := "Quiz completed"
	if m.snap.Phase == player.PhaseTimedOut {
		heading = "Time is up"
	}
	return fmt.Sprintf("%s\n\n%s  %d/%d points  (%.1f%%)\n%s",
		titleStyle.Render(heading), verdict, r.Score, r.TotalPoints, r.Percentage,
		subtitleStyle.Render("time spent "+formatSeconds(m.snap.ElapsedSeconds)))
}

func (m Model) keys() string {
	switch m.snap.Phase {
	case player.PhaseNotStarted:
		return "r retry · q quit"
	case player.PhaseInProgress:
		if m.snap.Question.Kind.IsChoice() {
			return "↑↓ move · space select · enter next · shift+tab back · h hint · ctrl+c abandon"
		}
		return "type answer · enter next · shift+tab back · ctrl+t hint · ctrl+c abandon"
	case player.PhaseAwaitingConfirmation:
		return "y submit · n go back · ctrl+c abandon"
	}
	return "q quit"
}

func retryHint(phase player.Phase) string {
	if phase == player.PhaseNotStarted {
		return "press r to try again"
	}
	if phase == player.PhaseAwaitingConfirmation {
		return "press y to submit again"
	}
	return "press ctrl+r to submit again"
}

func kindLabel(q domain.Question) string {
	switch q.Kind {
	case domain.KindMultipleChoice:
		if q.AllowMultiple {
			return "select all that apply"
		}
		return "multiple choice"
	case domain.KindTrueFalse:
		return "true or false"
	case domain.KindFillBlank:
		return "fill in the blank"
	}
	return "short answer"
}

func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
