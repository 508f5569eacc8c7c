// Package auth provides the credential status type shared by the CLI and the
// local runtime.
package auth
