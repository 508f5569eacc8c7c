// Package credential holds, validates and refreshes the credential used to
// call the management API.
//
// A Credential is immutable once built; refreshing produces a new value that
// replaces the old one wholesale. Validate checks a credential against a
// locally cached expiry, never against the network.
//
// Two Source implementations exist. StaticSource serves hosted sessions,
// where the credential is captured from the session's bearer token and
// re-authentication means a new session. StoreSource serves the local
// transport: it reads the file-based Store, refreshes through the OAuth
// refresh-token or client-credentials grant when the token has expired, and
// collapses concurrent reloads into one.
//
// SECURITY: token values and client secrets are never logged.
package credential
