package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/client/authflow"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

// allowed gates a command on perm and prints a notice when it is missing.
func (a *App) allowed(perm rbac.Permission) bool {
	if a.rbac.HasPermission(a.flow.CurrentUser(), perm) {
		return true
	}
	printlnFn("You do not have permission to do that.")
	return false
}

func (a *App) Whoami(context.Context) error {
	u := a.flow.CurrentUser()
	if u == nil {
		return common.ErrorUnauthorized
	}
	printlnFn(fmt.Sprintf("%s <%s>", u.Name, u.Email))
	printlnFn("Role:", u.Role)
	if u.Profile != nil {
		printlnFn(fmt.Sprintf("Institution: %s, batch %s, term %s", u.Profile.Institution, u.Profile.Batch, u.Profile.Term))
	}
	if u.InternID != nil {
		printlnFn("Intern ID:", *u.InternID)
	}
	return nil
}

// Permissions lists what the current role grants.
func (a *App) Permissions(context.Context) error {
	u := a.flow.CurrentUser()
	if u == nil {
		return common.ErrorUnauthorized
	}
	for _, p := range a.rbac.PermissionsFor(u.Role).Sorted() {
		printlnFn(" -", p)
	}
	return nil
}

// Can answers whether the current user holds the named permission.
func (a *App) Can(_ context.Context, name string) error {
	perm, ok := rbac.ParsePermission(name)
	if !ok {
		printlnFn("Unknown permission:", name)
		return common.ErrValidation
	}
	if a.rbac.HasPermission(a.flow.CurrentUser(), perm) {
		printlnFn("yes")
	} else {
		printlnFn("no")
	}
	return nil
}

func (a *App) Provision(ctx context.Context) error {
	if !a.allowed(rbac.PermManageUsers) {
		return common.ErrorForbidden
	}

	var req api.ProvisionRequest
	var err error
	if req.Name, err = a.ask("Enter full name"); err != nil {
		return err
	}
	if req.Email, err = a.ask("Enter email"); err != nil {
		return err
	}
	if req.Role, err = a.ask("Enter role (" + strings.ToLower(joinRoles()) + ")"); err != nil {
		return err
	}
	if req.Password, err = a.askPassword("Enter initial password"); err != nil {
		return err
	}
	if req.InternID, err = a.askOptional("Intern ID"); err != nil {
		return err
	}

	user, err := a.admin.ProvisionUser(ctx, req)
	if err != nil {
		printlnFn("Error:", authflow.Message(err))
		return err
	}
	printlnFn(fmt.Sprintf("Created %s account for %s.", user.Role, user.Email))
	return nil
}

func (a *App) Logs(ctx context.Context) error {
	if !a.allowed(rbac.PermViewSystemLogs) {
		return common.ErrorForbidden
	}
	logs, err := a.admin.ListLogs(ctx)
	if err != nil {
		printlnFn("Error:", authflow.Message(err))
		return err
	}
	if len(logs) == 0 {
		printlnFn("No entries.")
		return nil
	}
	for _, l := range logs {
		printlnFn(fmt.Sprintf("%s  %-9s %-24s %-15s %s",
			l.CreatedAt.Local().Format(time.DateTime), l.Event, l.UserName, l.IPAddress, l.Description))
	}
	return nil
}

func (a *App) Archive(ctx context.Context) error {
	if !a.allowed(rbac.PermViewSystemLogs) {
		return common.ErrorForbidden
	}
	res, err := a.admin.ArchiveLogs(ctx)
	if err != nil {
		printlnFn("Error:", authflow.Message(err))
		return err
	}
	printlnFn(fmt.Sprintf("Archived %d entries to %s", res.Count, res.Key))
	if res.URL != "" {
		printlnFn(res.URL)
	}
	return nil
}

func joinRoles() string {
	names := make([]string, len(rbac.Roles))
	for i, r := range rbac.Roles {
		names[i] = r.String()
	}
	return strings.Join(names, "|")
}
