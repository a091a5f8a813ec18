// Package models defines persisted entities and storage interfaces for spotx.
//
// [StoredToken] is the persisted form of an [auth.Token], keyed by the Spotify user it was issued to.
// It implements [Model], which provides ID, timestamps and validation.
//
// [TokenStore] is implemented by the memory, SQLite and Redis backends in the repositories package.
package models
