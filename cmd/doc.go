// Package cmd implements the command-line interface for gmailer.
//
// This package provides the following commands:
//   - init: Store the OAuth client credentials in the config file
//   - auth: Authorize gmailer (url, exchange, login) and refresh the token
//   - send: Send an HTML message with optional attachments
//   - list, get, read: Query and fetch messages as JSON
//   - labels, delete: Change labels or permanently delete messages
//   - attachments: List and download message attachments
//   - version: Display version information
//
// Every command reads the config file given by --config (or GMAILER_CONFIG)
// and writes its result to stdout as JSON. Logs go to stderr.
package cmd
