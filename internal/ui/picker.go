package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [services.SpotifySimplePlaylist] to implement [list.Item].
type playlistItem struct {
	playlist services.SpotifySimplePlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.Tracks.Total)
	if owner := i.playlist.Owner.DisplayName; owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, owner)
	}
	return desc
}

type pickerModel struct {
	list      list.Model
	keys      keyMap
	help      help.Model
	chosen    string
	cancelled bool
}

func newPickerModel(playlists []services.SpotifySimplePlaylist) pickerModel {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Spotify Playlists"
	l.SetShowHelp(false)

	return pickerModel{list: l, keys: newKeyMap(), help: help.New()}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-4)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.submit):
			if item, ok := m.list.SelectedItem().(playlistItem); ok {
				m.chosen = item.playlist.ID
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n%s", m.list.View(), styles.help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
}

// PickPlaylist lets the user choose one of playlists and returns its ID.
func PickPlaylist(ctx context.Context, playlists []services.SpotifySimplePlaylist) (string, error) {
	return pickPlaylist(ctx, playlists, os.Stdin, os.Stderr)
}

func pickPlaylist(ctx context.Context, playlists []services.SpotifySimplePlaylist, in io.Reader, out io.Writer) (string, error) {
	if len(playlists) == 0 {
		return "", fmt.Errorf("%w: no playlists to choose from", shared.ErrNotFound)
	}

	final, err := tea.NewProgram(newPickerModel(playlists),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("playlist picker failed: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.chosen == "" {
		return "", shared.ErrCancelled
	}
	return m.chosen, nil
}
