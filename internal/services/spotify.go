package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	maxTrackIDs    = 50
	maxFeatureIDs  = 100
	maxPageSize    = 50
	defaultPage    = 20
	defaultRate    = 10.0
	defaultBurst   = 5
	maxErrorDetail = 512
)

// SpotifyService is a client for the Spotify Web API.
type SpotifyService struct {
	token      auth.TokenInfo
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient sets the client used for API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithRateLimit caps requests at rps per second with the given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a client that authenticates with token.
func NewSpotifyService(token auth.TokenInfo, opts ...Option) (*SpotifyService, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: no token", shared.ErrNotAuthenticated)
	}

	s := &SpotifyService{
		token:      token,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", shared.ErrAPIRequest, err)
	}

	accessToken, err := s.token.AccessToken()
	if err != nil {
		return err
	}
	tokenType, err := s.token.TokenType()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", shared.ErrAPIRequest, err)
	}
	req.Header.Set("Authorization", tokenType+" "+accessToken)
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("spotify request", "endpoint", endpoint)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		s.logger.Warn("spotify request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// checkStatus maps a non-2xx response to a shared error, including the API's error message when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = shared.ErrTokenExpired
	case http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	default:
		sentinel = shared.ErrAPIRequest
	}

	detail := errorMessage(resp.Body)
	if retry := resp.Header.Get("Retry-After"); retry != "" && resp.StatusCode == http.StatusTooManyRequests {
		detail = strings.TrimSpace(detail + " (retry after " + retry + "s)")
	}
	if detail == "" {
		return fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, detail)
}

// errorMessage extracts error.message from a Spotify error object.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorDetail))
	if err != nil || json.Unmarshal(data, &payload) != nil {
		return ""
	}
	return payload.Error.Message
}

func pageQuery(limit, offset int) string {
	if limit <= 0 {
		limit = defaultPage
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf("limit=%d&offset=%d", limit, offset)
}

func checkIDs(ids []string, limit int) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no IDs provided", shared.ErrMissingArgument)
	}
	if len(ids) > limit {
		return fmt.Errorf("%w: maximum %d IDs allowed, got %d", shared.ErrInvalidArgument, limit, len(ids))
	}
	return nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty ID", shared.ErrMissingArgument)
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	if err := checkID(trackID); err != nil {
		return nil, err
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// SeveralTracks retrieves multiple tracks by their IDs (up to 50).
func (s *SpotifyService) SeveralTracks(ctx context.Context, trackIDs []string) ([]SpotifyTrack, error) {
	if err := checkIDs(trackIDs, maxTrackIDs); err != nil {
		return nil, err
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, "/me/tracks?"+pageQuery(limit, offset), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, "/me/playlists?"+pageQuery(limit, offset), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// AllPlaylists follows the pagination of [SpotifyService.UserPlaylists] to the last page.
func (s *SpotifyService) AllPlaylists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	var all []SpotifySimplePlaylist
	offset := 0

	for {
		page, err := s.UserPlaylists(ctx, maxPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return all, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	if err := checkID(playlistID); err != nil {
		return nil, err
	}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, "/playlists/"+url.PathEscape(playlistID), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistTracks retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if err := checkID(playlistID); err != nil {
		return nil, err
	}

	var page SpotifyPaginatedPlaylistTracks
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks?" + pageQuery(limit, offset)
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ExportPlaylist retrieves a playlist and pages through the rest of its tracks.
//
// Local files and removed tracks come back without an ID and are skipped.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*PlaylistExport, error) {
	playlist, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	export := &PlaylistExport{Playlist: *playlist, Tracks: make([]SpotifyTrack, 0, playlist.Tracks.Total)}
	appendTracks := func(items []SpotifyPlaylistTrack) {
		for _, item := range items {
			if item.Track.ID != "" {
				export.Tracks = append(export.Tracks, item.Track)
			}
		}
	}

	appendTracks(playlist.Tracks.Items)
	offset := len(playlist.Tracks.Items)
	next := playlist.Tracks.Next

	for next != nil && offset < playlist.Tracks.Total {
		page, err := s.PlaylistTracks(ctx, playlistID, maxPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tracks of playlist %s: %w", playlistID, err)
		}
		if len(page.Items) == 0 {
			break
		}
		appendTracks(page.Items)
		offset += len(page.Items)
		next = page.Next
	}

	s.logger.Debug("exported playlist", "id", playlistID, "tracks", len(export.Tracks))
	export.Playlist.Tracks.Items = nil
	return export, nil
}

// AudioFeatures retrieves the audio features of a track.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackID string) (*AudioFeatures, error) {
	if err := checkID(trackID); err != nil {
		return nil, err
	}

	var features AudioFeatures
	if err := s.doRequest(ctx, "/audio-features/"+url.PathEscape(trackID), &features); err != nil {
		return nil, err
	}
	return &features, nil
}

// SeveralAudioFeatures retrieves audio features for up to 100 tracks. Tracks without features are
// returned as nil entries in request order.
func (s *SpotifyService) SeveralAudioFeatures(ctx context.Context, trackIDs []string) ([]*AudioFeatures, error) {
	if err := checkIDs(trackIDs, maxFeatureIDs); err != nil {
		return nil, err
	}

	var response struct {
		AudioFeatures []*AudioFeatures `json:"audio_features"`
	}
	endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return response.AudioFeatures, nil
}
