// Package tui renders the upload flow's progress stream as an interactive
// terminal view.
package tui

import (
	"context"
	"fmt"

	"frameselect/internal/orchestrator"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type updateMsg orchestrator.Update

type doneMsg struct {
	result orchestrator.Result
	err    error
}

type uploadModel struct {
	bar     progress.Model
	updates <-chan orchestrator.Update
	done    <-chan doneMsg
	cancel  context.CancelFunc

	step    string
	percent float64
	final   *doneMsg
}

func newUploadModel(updates <-chan orchestrator.Update, done <-chan doneMsg, cancel context.CancelFunc) uploadModel {
	return uploadModel{
		bar:     progress.New(progress.WithDefaultGradient()),
		updates: updates,
		done:    done,
		cancel:  cancel,
		step:    "Starting...",
	}
}

// listen waits for the next progress update; once the orchestrator closes
// its stream, the terminal outcome is next.
func (m uploadModel) listen() tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-m.updates; ok {
			return updateMsg(update)
		}
		return <-m.done
	}
}

func (m uploadModel) Init() tea.Cmd {
	return m.listen()
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, m.listen()
		}
		return m, nil

	case updateMsg:
		m.step = msg.Step
		m.percent = msg.Percent
		return m, m.listen()

	case doneMsg:
		m.final = &msg
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 8
		return m, nil
	}
	return m, nil
}

func (m uploadModel) View() string {
	if m.final != nil {
		if m.final.err != nil {
			return errStyle.Render(fmt.Sprintf("Upload failed: %v", m.final.err)) + "\n"
		}
		return titleStyle.Render("Analysis complete") + "\n"
	}

	return fmt.Sprintf("%s\n\n  %s\n\n  %s  %.0f%%\n\n%s\n",
		titleStyle.Render("Uploading and analyzing photos"),
		stepStyle.Render(m.step),
		m.bar.ViewAs(m.percent/100),
		m.percent,
		stepStyle.Render("press q to cancel"),
	)
}

// RunUpload drives an orchestrator run under the interactive progress
// view and returns its terminal outcome.
func RunUpload(ctx context.Context, orch *orchestrator.Orchestrator, files []string) (orchestrator.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan doneMsg, 1)
	go func() {
		result, err := orch.Run(ctx, files)
		done <- doneMsg{result: result, err: err}
	}()

	model := newUploadModel(orch.Updates(), done, cancel)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		// The view failed or was cancelled; the orchestrator outcome still
		// decides what the caller sees.
		outcome := <-done
		return outcome.result, outcome.err
	}

	m := final.(uploadModel)
	if m.final == nil {
		outcome := <-done
		return outcome.result, outcome.err
	}
	return m.final.result, m.final.err
}
