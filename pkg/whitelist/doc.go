// Package whitelist persists handles that bulk operations must skip.
//
// There are two independent scopes:
//   - unfollow: accounts that do not follow back but should stay followed
//   - follow: followers that should not be followed back
//
// Each scope is a JSON array of lowercased handles. Saves go through a
// temporary file and a rename, so a crash never leaves a half-written file.
// A file that fails to parse is treated as an empty whitelist.
package whitelist
