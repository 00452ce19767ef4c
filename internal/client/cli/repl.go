package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Login(ctx context.Context) error
	Register(ctx context.Context) error
	RequestCode(ctx context.Context) error
	Verify(ctx context.Context) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context) error
	Back(ctx context.Context) error

	Whoami(ctx context.Context) error
	Permissions(ctx context.Context) error
	Can(ctx context.Context, perm string) error
	Provision(ctx context.Context) error
	Logs(ctx context.Context) error
	Archive(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	helpGuest  = "Available commands: login, register, otp, verify, forgot, reset, back, exit"
	helpMember = "Available commands: whoami, perms, can <PERMISSION>, provision, logs, archive, logout, exit"
)

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
// Guests get the sign-in commands; a signed-in user gets the account
// commands. Handlers print their own results, so their errors are dropped
// here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ojt> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn(helpMember)
			} else {
				printlnFn(helpGuest)
			}
			continue
		}

		if a.isLoggedIn() {
			dispatchMember(ctx, a, cmd, args)
		} else {
			dispatchGuest(ctx, a, cmd)
		}
	}
}

func dispatchGuest(ctx context.Context, a execIface, cmd string) {
	switch cmd {
	case "login":
		_ = a.Login(ctx)
	case "register", "signup":
		_ = a.Register(ctx)
	case "otp":
		_ = a.RequestCode(ctx)
	case "verify":
		_ = a.Verify(ctx)
	case "forgot":
		_ = a.Forgot(ctx)
	case "reset":
		_ = a.Reset(ctx)
	case "back":
		_ = a.Back(ctx)
	case "whoami", "perms", "can", "provision", "logs", "archive", "logout":
		printlnFn("Please log in first.")
	default:
		printlnFn("Unknown command:", cmd)
	}
}

func dispatchMember(ctx context.Context, a execIface, cmd string, args []string) {
	switch cmd {
	case "whoami":
		_ = a.Whoami(ctx)
	case "perms":
		_ = a.Permissions(ctx)
	case "can":
		if len(args) == 0 {
			printlnFn("Usage: can <PERMISSION>")
			return
		}
		_ = a.Can(ctx, args[0])
	case "provision":
		_ = a.Provision(ctx)
	case "logs":
		_ = a.Logs(ctx)
	case "archive":
		_ = a.Archive(ctx)
	case "logout":
		_ = a.Logout(ctx)
	case "login", "register", "signup", "otp", "verify", "forgot", "reset", "back":
		printlnFn("Already logged in. Use 'logout' first.")
	default:
		printlnFn("Unknown command:", cmd)
	}
}
