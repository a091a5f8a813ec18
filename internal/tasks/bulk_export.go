package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestFile     = "export_manifest.json"
)

// PlaylistSource fetches a playlist with all of its tracks.
type PlaylistSource interface {
	ExportPlaylist(ctx context.Context, playlistID string) (*services.PlaylistExport, error)
}

var _ PlaylistSource = (*services.SpotifyService)(nil)

// CoverFunc returns the cover image bytes for a playlist.
type CoverFunc func(ctx context.Context, export *services.PlaylistExport) ([]byte, error)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: spotify_export_{epoch})
	NumWorkers int              // Concurrent writers (default: 5, max: 10)
	RateLimit  float64          // Playlist fetches per second (default: 5)
	Cover      CoverFunc        // Optional cover fetcher for markdown exports
}

// PlaylistExportJob is a fetched playlist waiting to be written.
type PlaylistExportJob struct {
	PlaylistID string
	Export     *services.PlaylistExport
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []PlaylistExportResult // in request order
	OutputDirectory   string
	ManifestPath      string
}

// Exporter writes playlists from a [PlaylistSource] to disk.
type Exporter struct {
	source PlaylistSource
	logger *log.Logger
}

// NewExporter creates an exporter reading from source. A nil logger discards output.
func NewExporter(source PlaylistSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{source: source, logger: logger}
}

func (o BulkExportOpts) withDefaults() BulkExportOpts {
	if o.Format == "" {
		o.Format = formatter.JSON
	}
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("spotify_export_%d", time.Now().Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	if o.NumWorkers > maxWorkers {
		o.NumWorkers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

// BulkExport exports the playlists named by ids concurrently.
//
// Playlists are fetched one at a time behind a rate limiter and written by a pool of workers. A
// playlist that cannot be fetched or written is recorded as failed without stopping the others.
// Cancelling ctx stops the remaining fetches; playlists not reached are absent from the results.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}

	opts = opts.withDefaults()
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan PlaylistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	// The producer sends fetch failures on results too.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				e.logger.Warn("bulk export stopped", "remaining", len(ids)-i, "error", err)
				return
			}

			sendProgress(prog, fetchingPlaylistUpdate(i+1, len(ids), playlistID))

			export, err := e.source.ExportPlaylist(ctx, playlistID)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}

			jobs <- PlaylistExportJob{PlaylistID: playlistID, Export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "id", res.PlaylistID, "error", res.Error)
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	order := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := order[id]; !seen {
			order[id] = i
		}
	}
	slices.SortStableFunc(result.Results, func(a, b PlaylistExportResult) int {
		return order[a.PlaylistID] - order[b.PlaylistID]
	})

	manifestPath := filepath.Join(opts.OutputDir, manifestFile)
	if err := WriteManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker writes playlists from jobs until the channel closes or ctx ends.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan PlaylistExportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportSinglePlaylist(ctx, job, opts)
	}
}

// exportSinglePlaylist writes one playlist in the configured format.
func (e *Exporter) exportSinglePlaylist(ctx context.Context, j PlaylistExportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   j.PlaylistID,
		PlaylistName: j.Export.Playlist.Name,
		Files:        []string{},
	}

	switch opts.Format {
	case formatter.CSV:
		base := filepath.Join(opts.OutputDir, j.PlaylistID)
		csvRes, err := formatter.WriteCSVExport(j.Export, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}

	case formatter.Markdown:
		var cover []byte
		if opts.Cover != nil {
			data, err := opts.Cover(ctx, j.Export)
			if err != nil {
				e.logger.Warn("failed to fetch cover image", "id", j.PlaylistID, "error", err)
			}
			cover = data
		}

		mdRes, err := formatter.WriteMarkdownExport(j.Export, filepath.Join(opts.OutputDir, j.PlaylistID), cover)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case formatter.Text:
		path, err := formatter.WriteTextExport(j.Export, filepath.Join(opts.OutputDir, j.PlaylistID+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(j.Export, filepath.Join(opts.OutputDir, j.PlaylistID+".json"))
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
