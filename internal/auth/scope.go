package auth

import (
	"slices"
	"strings"
)

// Spotify authorization scopes.
const (
	UserReadPrivate           = "user-read-private"
	UserReadEmail             = "user-read-email"
	UserLibraryRead           = "user-library-read"
	UserLibraryModify         = "user-library-modify"
	UserTopRead               = "user-top-read"
	UserReadRecentlyPlayed    = "user-read-recently-played"
	UserReadPlaybackState     = "user-read-playback-state"
	UserModifyPlaybackState   = "user-modify-playback-state"
	UserReadCurrentlyPlaying  = "user-read-currently-playing"
	UserFollowRead            = "user-follow-read"
	UserFollowModify          = "user-follow-modify"
	PlaylistReadPrivate       = "playlist-read-private"
	PlaylistReadCollaborative = "playlist-read-collaborative"
	PlaylistModifyPrivate     = "playlist-modify-private"
	PlaylistModifyPublic      = "playlist-modify-public"
	UGCImageUpload            = "ugc-image-upload"
	AppRemoteControl          = "app-remote-control"
	Streaming                 = "streaming"
)

// ReadScopes grants read access to the user's profile, library, playlists and listening data.
var ReadScopes = NewScope(
	UserReadPrivate, UserReadEmail, UserLibraryRead, UserTopRead, UserReadRecentlyPlayed,
	UserReadPlaybackState, UserReadCurrentlyPlaying, UserFollowRead,
	PlaylistReadPrivate, PlaylistReadCollaborative,
)

// Scope is a sorted set of scope names.
type Scope []string

// NewScope builds a Scope from values, dropping blanks and duplicates.
func NewScope(values ...string) Scope {
	s := make(Scope, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			s = append(s, v)
		}
	}
	slices.Sort(s)
	return slices.Compact(s)
}

// ParseScope parses the space separated form used on the wire.
func ParseScope(raw string) Scope {
	return NewScope(strings.Fields(raw)...)
}

// String returns the space separated wire form.
func (s Scope) String() string {
	return strings.Join(s, " ")
}

// Contains reports whether name is part of the scope.
func (s Scope) Contains(name string) bool {
	return slices.Contains(s, name)
}

// Union returns the scope holding the names of both s and other.
func (s Scope) Union(other Scope) Scope {
	return NewScope(append(slices.Clone(s), other...)...)
}
