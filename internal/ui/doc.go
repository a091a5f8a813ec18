// Package ui implements the interactive terminal pieces of spotx with bubbletea's Elm architecture.
//
//   - [TextInputReader] : a single-line input that implements auth.LineReader, used to paste the redirect URL
//   - [PickPlaylist] : a filterable list for choosing one of the user's playlists
//
// Both run a short-lived [tea.Program] and return when the user submits or cancels. Cancelling with esc or
// ctrl+c returns [shared.ErrCancelled].
package ui
