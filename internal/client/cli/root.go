package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ojtauth/internal/client/authflow"
)

// getStatus renders the prompt status: the signed-in email and role, or the
// current step while signing in, followed by the connectivity mode.
func (a *App) getStatus() string {
	s := ""
	if u := a.flow.CurrentUser(); u != nil {
		s = fmt.Sprintf("%s %s ", u.Email, u.Role)
	} else if step := a.flow.Step(); step != authflow.StepLoggedOut {
		s = step.String() + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the ojtauth client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
