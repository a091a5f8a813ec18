// Package tasks runs long playlist operations with progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] fetches each requested playlist through a [PlaylistSource] (normally
// [services.SpotifyService]) and hands it to a pool of workers that write it in the chosen
// [formatter.Format]:
//
//   - fetches are paced by a [rate.Limiter] so the Web API limit is respected
//   - a failed playlist is recorded and the export carries on
//   - export_manifest.json in the output directory lists every playlist with its files or error
//
// # Progress Reporting
//
// Operations accept an optional progress channel. The [ProgressUpdate] struct carries phase, step
// counters and a display message. Sends use select with default so a slow reader never blocks the
// export.
package tasks
