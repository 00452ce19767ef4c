// Package cli is the interactive ojtauth client.
//
// It restores the cached session on start, runs a background watcher that
// probes the server's health endpoint, and reads commands from a REPL. The
// sign-in commands (login, register, otp, verify, forgot, reset, back) drive
// the authflow state machine; once signed in, the RBAC service decides which
// of whoami, perms, can, provision, logs and archive are available.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
