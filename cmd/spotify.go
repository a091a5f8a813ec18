package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/tasks"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

var pickPlaylist = ui.PickPlaylist

// Me shows the current user's profile.
func (r *Runner) Me(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	user, err := svc.UserProfile(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlainHeader(user.DisplayName)
	r.writePlain("ID:        %s\n", user.ID)
	if user.Email != "" {
		r.writePlain("Email:     %s\n", user.Email)
	}
	if user.Country != "" {
		r.writePlain("Country:   %s\n", user.Country)
	}
	r.writePlain("Product:   %s\n", user.Product)
	r.writePlain("Followers: %d\n", user.Followers.Total)
	return nil
}

// TracksGet shows one or more tracks.
func (r *Runner) TracksGet(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	var tracks []services.SpotifyTrack
	if len(ids) == 1 {
		track, err := svc.Track(ctx, ids[0])
		if err != nil {
			return err
		}
		tracks = []services.SpotifyTrack{*track}
	} else if tracks, err = svc.SeveralTracks(ctx, ids); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Name)
		r.writePlain("   ID: %s\n", t.ID)
		if t.Album.Name != "" {
			r.writePlain("   Album: %s\n", t.Album.Name)
		}
		r.writePlain("   Duration: %s\n", formatter.FormatDuration(t.DurationMS))
		if t.ExternalIDs.ISRC != "" {
			r.writePlain("   ISRC: %s\n", t.ExternalIDs.ISRC)
		}
	}
	return nil
}

// TracksFeatures shows audio features for one or more tracks.
func (r *Runner) TracksFeatures(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	features, err := svc.SeveralAudioFeatures(ctx, ids)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(features, cmd.Bool("pretty"))
	}

	for i, f := range features {
		if f == nil {
			r.writePlain("%s: no audio features\n", ids[i])
			continue
		}
		r.writePlain("%s\n", f.ID)
		r.writePlain("   Tempo: %.1f BPM, Key: %d, Mode: %d, Time signature: %d/4\n", f.Tempo, f.Key, f.Mode, f.TimeSignature)
		r.writePlain("   Danceability: %.2f, Energy: %.2f, Valence: %.2f\n", f.Danceability, f.Energy, f.Valence)
		r.writePlain("   Acousticness: %.2f, Instrumentalness: %.2f, Speechiness: %.2f\n", f.Acousticness, f.Instrumentalness, f.Speechiness)
	}
	return nil
}

// PlaylistsList lists the current user's playlists, one page or all of them.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	var playlists []services.SpotifySimplePlaylist
	if cmd.Bool("all") {
		if playlists, err = svc.AllPlaylists(ctx); err != nil {
			return err
		}
	} else {
		page, err := svc.UserPlaylists(ctx, cmd.Int("limit"), cmd.Int("offset"))
		if err != nil {
			return err
		}
		playlists = page.Items
	}

	r.logger.Debug("listed spotify playlists", "count", len(playlists))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		r.writePlain("   Visibility: %s\n\n", formatter.VisibilityString(p.Public))
	}
	return nil
}

// PlaylistsGet shows a playlist chosen by ID or, with --pick, from an interactive list.
func (r *Runner) PlaylistsGet(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if cmd.Bool("pick") {
		playlists, err := svc.AllPlaylists(ctx)
		if err != nil {
			return err
		}
		if id, err = pickPlaylist(ctx, playlists); err != nil {
			return err
		}
	}
	if id == "" {
		return fmt.Errorf("%w: playlist ID or --pick is required", shared.ErrMissingArgument)
	}

	playlist, err := svc.Playlist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlainHeader(playlist.Name)
	if playlist.Description != "" {
		r.writePlain("%s\n", playlist.Description)
	}
	r.writePlain("Owner: %s · %d tracks · %s\n\n",
		playlist.Owner.DisplayName, playlist.Tracks.Total, formatter.VisibilityString(playlist.Public))
	for i, item := range playlist.Tracks.Items {
		t := item.Track
		r.writePlain("%3d. %s - %s [%s]\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Name, formatter.FormatDuration(t.DurationMS))
	}
	if rest := playlist.Tracks.Total - len(playlist.Tracks.Items); rest > 0 {
		r.writePlain("... and %d more (use 'spotx playlists export %s')\n", rest, playlist.ID)
	}
	return nil
}

// PlaylistsExport writes playlists with all of their tracks to files in the chosen format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		playlists, err := svc.AllPlaylists(ctx)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: playlist IDs or --all are required", shared.ErrMissingArgument)
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.API.RateLimit,
	}
	if cmd.Bool("cover") {
		opts.Cover = r.downloadCover
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.NewExporter(svc, r.logger).BulkExport(ctx, progress, ids, opts)
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("Exported %d of %d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
		if result.FailedExports > 0 {
			r.writePlain("%d failed, see %s\n", result.FailedExports, result.ManifestPath)
		}
	}
	return err
}

func (r *Runner) downloadCover(_ context.Context, export *services.PlaylistExport) ([]byte, error) {
	if len(export.Playlist.Images) == 0 {
		return nil, nil
	}
	return formatter.DownloadImage(r.httpClient, export.Playlist.Images[0].URL)
}

// Saved lists tracks saved in the user's library.
func (r *Runner) Saved(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(ctx, cmd)
	if err != nil {
		return err
	}

	page, err := svc.SavedTracks(ctx, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlain("Saved tracks %d-%d of %d:\n\n", page.Offset+1, page.Offset+len(page.Items), page.Total)
	for i, item := range page.Items {
		t := item.Track
		r.writePlain("%d. %s - %s\n", page.Offset+i+1, strings.Join(t.ArtistNames(), ", "), t.Name)
		r.writePlain("   ID: %s · added %s\n", t.ID, item.AddedAt)
	}
	return nil
}
