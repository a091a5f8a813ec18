package tasks

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/shared"
)

type manifest struct {
	Format            formatter.Format   `json:"format"`
	CreatedAt         time.Time          `json:"created_at"`
	TotalPlaylists    int                `json:"total_playlists"`
	SuccessfulExports int                `json:"successful_exports"`
	FailedExports     int                `json:"failed_exports"`
	Playlists         []manifestPlaylist `json:"playlists"`
}

type manifestPlaylist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

var manifestTime = time.Now

// WriteManifest records the outcome of a bulk export as JSON at path.
func WriteManifest(result *BulkExportResult, format formatter.Format, path string) error {
	m := manifest{
		Format:            format,
		CreatedAt:         manifestTime().UTC(),
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Playlists:         make([]manifestPlaylist, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := manifestPlaylist{ID: res.PlaylistID, Name: res.PlaylistName, Status: "success", Files: res.Files}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
