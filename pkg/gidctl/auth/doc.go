// Package auth implements the token lifecycle for the gidctl CLI: the
// interactive authorization-code flow with PKCE and a one-shot loopback
// callback listener, silent refresh of cached tokens, and credential storage
// keyed by the authenticated identity via keyring or file backends.
package auth
