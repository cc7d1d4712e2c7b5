// Package cmd implements the cobra command tree for the gidctl CLI:
// obtaining tokens, managing cached credentials, version, and shell
// completion.
package cmd
