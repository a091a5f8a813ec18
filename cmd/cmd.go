// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "client-id",
			Usage: "Spotify client id (overrides config and environment)",
		},
		&cli.StringFlag{
			Name:  "client-secret",
			Usage: "Spotify client secret (overrides config and environment)",
		},
		&cli.StringFlag{
			Name:  "redirect-uri",
			Usage: "Redirect URI registered for the application",
		},
	}
}

// setupCommand creates the config file and prepares the token store.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and run token store migrations",
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify user token",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and store the user token",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "How the redirect URL is received: console, callback or tui",
						Value:   "console",
					},
					&cli.StringFlag{
						Name:  "scope",
						Usage: "Space separated scopes to request (default: credentials.spotify.scope)",
					},
				}, credentialFlags()...),
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored token",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the stored token now",
				Flags:  credentialFlags(),
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored token",
				Action: r.AuthLogout,
			},
		},
	}
}

// meCommand shows the current user's profile.
func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "me",
		Usage:  "Show the current user's profile",
		Flags:  append(outputFlags(), credentialFlags()...),
		Action: r.Me,
	}
}

// tracksCommand handles track lookups
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Track lookups",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Get one or more tracks by ID",
				ArgsUsage: "<id>...",
				Flags:     append(outputFlags(), credentialFlags()...),
				Action:    r.TracksGet,
			},
			{
				Name:      "features",
				Usage:     "Get audio features for one or more tracks",
				ArgsUsage: "<id>...",
				Flags:     append(outputFlags(), credentialFlags()...),
				Action:    r.TracksFeatures,
			},
		},
	}
}

// playlistsCommand handles playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the current user's playlists",
				Flags: append(append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return (1-50)",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Index of the first playlist",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Follow pagination to the last playlist",
					},
				}, outputFlags()...), credentialFlags()...),
				Action: r.PlaylistsList,
			},
			{
				Name:  "get",
				Usage: "Show a playlist and its first page of tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: append(append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "pick",
						Usage: "Choose the playlist interactively",
					},
				}, outputFlags()...), credentialFlags()...),
				Action: r.PlaylistsGet,
			},
			{
				Name:      "export",
				Usage:     "Export playlists with all tracks to files",
				ArgsUsage: "[<id>...]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: spotify_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers (max 10)",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every playlist of the current user",
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Download cover images for markdown exports",
					},
				}, credentialFlags()...),
				Action: r.PlaylistsExport,
			},
		},
	}
}

// savedCommand lists saved tracks.
func savedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "List tracks saved in the current user's library",
		Flags: append(append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return (1-50)",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Index of the first track",
			},
		}, outputFlags()...), credentialFlags()...),
		Action: r.Saved,
	}
}
