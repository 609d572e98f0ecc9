// Package auth stores Bluesky app passwords.
//
// Credentials are kept in the first available of: the system keychain, an
// encrypted file under the user config directory, and (read-only) the
// BSKYFOLLOW_IDENTIFIER / BSKYFOLLOW_APP_PASSWORD environment variables.
//
// The keychain store keeps an index entry next to the accounts so they can
// be listed. The file store is a single AES-GCM vault whose key is derived
// with PBKDF2 from BSKYFOLLOW_PASSPHRASE or a generated passphrase file.
package auth
