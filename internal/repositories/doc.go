// Package repositories implements the token store backends.
//
// Key Implementations:
//   - [TokenRepository] : SQLite persistence with one row per Spotify user
//   - [MemoryStore] : process-local map, used in tests and for throwaway sessions
//   - [RedisStore] : Redis persistence through rueidis, for sharing tokens between hosts
//
// [Factory] selects a backend from configuration.
package repositories
