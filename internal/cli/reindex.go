package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Force a full BM25 rebuild from the episodes on disk",
	RunE:  runReindex,
}

// reindexProgressMsg carries one onProgress callback firing from the
// background goroutine running AgentMemory.Reindex into the bubbletea
// update loop.
type reindexProgressMsg struct {
	done, total int
}

type reindexDoneMsg struct{ err error }

type reindexModel struct {
	progress progress.Model
	done     bool
	err      error
	total    int
	seen     int
	updates  chan tea.Msg
}

func newReindexModel(updates chan tea.Msg) reindexModel {
	return reindexModel{
		progress: progress.New(progress.WithDefaultBlend(), progress.WithWidth(40)),
		updates:  updates,
	}
}

func (m reindexModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Init(), waitForReindexMsg(m.updates))
}

func waitForReindexMsg(updates chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-updates }
}

func (m reindexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case reindexProgressMsg:
		m.seen, m.total = msg.done, msg.total
		return m, waitForReindexMsg(m.updates)
	case reindexDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m reindexModel) View() tea.View {
	if m.done {
		if m.err != nil {
			return tea.NewView(theme.errorStyle().Render(fmt.Sprintf("reindex failed: %s\n", m.err)))
		}
		return tea.NewView(theme.successStyle().Render(fmt.Sprintf("reindexed %d episodes\n", m.total)))
	}
	bar := m.progress.ViewAs(0)
	if m.total > 0 {
		bar = m.progress.ViewAs(float64(m.seen) / float64(m.total))
	}
	return tea.NewView(fmt.Sprintf("%s %d/%d episodes\n", bar, m.seen, m.total))
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	updates := make(chan tea.Msg)

	go func() {
		err := mem.Reindex(ctx, func(done, total int) {
			updates <- reindexProgressMsg{done: done, total: total}
		})
		updates <- reindexDoneMsg{err: err}
	}()

	p := tea.NewProgram(newReindexModel(updates))
	final, err := p.Run()
	if err != nil {
		exitOnErr(err)
		return nil
	}
	if fm, ok := final.(reindexModel); ok && fm.err != nil {
		exitOnErr(fm.err)
	}
	return nil
}
