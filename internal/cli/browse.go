package cli

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/engramhq/engram/internal/models"
	"github.com/spf13/cobra"
)

var browseQuery string

// browseCmd is a convenience wrapper over recall/recent: not a required
// CLI verb, just an interactive way to page through either result set
// without re-running the command for every page.
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactively browse recent or recalled episodes",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseQuery, "query", "", "browse recall results for this query instead of recent episodes")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var episodes []*models.Episode
	if browseQuery != "" {
		results, err := mem.Recall(ctx, browseQuery, searchOptions(50, nil, ""))
		if err != nil {
			exitOnErr(err)
			return nil
		}
		for _, r := range results {
			episodes = append(episodes, &r.Episode)
		}
	} else {
		recent, err := mem.GetRecent(ctx, 50)
		if err != nil {
			exitOnErr(err)
			return nil
		}
		episodes = recent
	}

	if len(episodes) == 0 {
		fmt.Println(theme.hintStyle().Render("No episodes to browse."))
		return nil
	}

	m := newBrowseModel(episodes, theme)
	_, err := tea.NewProgram(m).Run()
	return err
}

// browseModel is a minimal scrollable episode list: up/down to move the
// cursor, q or ctrl+c to quit.
type browseModel struct {
	episodes []*models.Episode
	cursor   int
	theme    Theme
}

func newBrowseModel(episodes []*models.Episode, theme Theme) browseModel {
	return browseModel{episodes: episodes, theme: theme}
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.episodes)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m browseModel) View() tea.View {
	var sb strings.Builder
	for i, ep := range m.episodes {
		line := fmt.Sprintf("[%s] %s  %s", ep.Type, ep.ID, truncateLine(ep.Text, 70))
		if i == m.cursor {
			sb.WriteString(m.theme.successStyle().Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	if m.cursor < len(m.episodes) {
		sb.WriteString("\n")
		sb.WriteString(m.theme.hintStyle().Render(m.episodes[m.cursor].Text))
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.hintStyle().Render("\n↑/↓ to move, q to quit"))
	return tea.NewView(sb.String())
}
