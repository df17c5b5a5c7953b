package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/telegram/format"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/apperr"
)

// maxListed caps list messages and their keyboards.
const maxListed = 30

func (b *Bot) registerAdmin() {
	b.command("/pending", "Access requests", b.showPending, adminOnly)
	b.command("/allowed", "Users with access", b.showAllowed, adminOnly)
	b.command("/handles", "Handles waiting for first contact", b.showHandles, adminOnly)
	b.command("/grant", "Give access by id or @handle", b.onGrant, adminOnly)
	b.command("/revoke", "Take access away", b.onRevoke, adminOnly)
	b.command("/approve_all", "Approve every request", b.onApproveAll, adminOnly)
	b.command("/deny_all", "Deny every request", b.onDenyAll, adminOnly)
	b.command("/assign", "Assign a task", b.onAssign, adminOnly)

	b.callback(action.Approve, b.onApprove, b.admin)
	b.callback(action.Deny, b.onDeny, b.admin)
	b.callback(action.Revoke, b.onRevokeButton, b.admin)
}

var errUserIDUsage = apperr.Usagef("user id must be a positive number")

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUserIDUsage
	}
	return id, nil
}

// parseGrantTarget reads "/grant" arguments: a numeric id or a handle.
func parseGrantTarget(args string) (int64, string, error) {
	args = strings.TrimSpace(args)
	if args == "" || strings.ContainsAny(args, " \t\n") {
		return 0, "", apperr.Usagef("usage: /grant <id|@handle>")
	}
	if strings.HasPrefix(args, "@") {
		return 0, args, nil
	}
	if id, err := parseUserID(args); err == nil {
		return id, "", nil
	}
	if access.ValidHandle(args) {
		return 0, args, nil
	}
	return 0, "", errUserIDUsage
}

// parseAssign reads "<id> <name> | <description>". The description is optional.
func parseAssign(args string) (int64, string, string, error) {
	usage := apperr.Usagef("usage: /assign <id> <name> | <description>")
	idPart, rest, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok {
		return 0, "", "", usage
	}
	id, err := parseUserID(idPart)
	if err != nil {
		return 0, "", "", err
	}
	name, desc, _ := strings.Cut(rest, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", "", usage
	}
	return id, name, strings.TrimSpace(desc), nil
}

func (b *Bot) showPending(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reqs, err := b.gate.Pending(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	if len(reqs) == 0 {
		return tghelpers.EditOrSendHTML(c, "No pending requests.", backTo(sectionPanel))
	}
	lines := []string{format.Bold(fmt.Sprintf("Pending requests: %d", len(reqs)))}
	var rows [][]keyboard.InlineBtn
	for i, r := range reqs {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("… and %d more, use /approve_all or /deny_all", len(reqs)-maxListed))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s, %s, %s", i+1,
			format.Escape(r.Label()), format.Code(strconv.FormatInt(r.UserID, 10)), r.RequestedAt.Format("2006-01-02 15:04")))
		rows = append(rows, []keyboard.InlineBtn{
			btn("✅ "+format.Truncate(r.Label(), 24), action.Action{Kind: action.Approve, UserID: r.UserID}),
			btn("❌", action.Action{Kind: action.Deny, UserID: r.UserID}),
		})
	}
	rows = append(rows, []keyboard.InlineBtn{btn("◀️ Back", panel(sectionPanel))})
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), keyboard.Inline(rows...))
}

func (b *Bot) showAllowed(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	users, err := b.gate.Allowed(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	if len(users) == 0 {
		return tghelpers.EditOrSendHTML(c, "Nobody has been given access yet.", backTo(sectionPanel))
	}
	lines := []string{format.Bold(fmt.Sprintf("Users with access: %d", len(users)))}
	var rows [][]keyboard.InlineBtn
	for i, u := range users {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("… and %d more", len(users)-maxListed))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s, %s", i+1,
			format.Escape(u.Label()), format.Code(strconv.FormatInt(u.UserID, 10))))
		rows = append(rows, []keyboard.InlineBtn{
			btn("🚫 "+format.Truncate(u.Label(), 28), action.Action{Kind: action.Revoke, UserID: u.UserID}),
		})
	}
	rows = append(rows, []keyboard.InlineBtn{btn("◀️ Back", panel(sectionPanel))})
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), keyboard.Inline(rows...))
}

func (b *Bot) showHandles(c tele.Context) error {
	handles, err := b.gate.Handles(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(handles) == 0 {
		return tghelpers.EditOrSendHTML(c, "No handles are waiting.\nUse /grant @handle to add one.", backTo(sectionPanel))
	}
	lines := []string{format.Bold(fmt.Sprintf("Handles waiting for first contact: %d", len(handles)))}
	for i, h := range handles {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("… and %d more", len(handles)-maxListed))
			break
		}
		lines = append(lines, "@"+format.Escape(h))
	}
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), backTo(sectionPanel))
}

func (b *Bot) onApprove(c tele.Context, a action.Action) error {
	req, err := b.gate.Approve(tghelpers.BuildContext(c), a.UserID)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.EditOrSendHTML(c, "✅ Access granted to "+format.Escape(req.Label()))
}

func (b *Bot) onDeny(c tele.Context, a action.Action) error {
	if err := b.gate.Deny(tghelpers.BuildContext(c), a.UserID); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.EditOrSendHTML(c, fmt.Sprintf("❌ Request of %s declined", format.Code(strconv.FormatInt(a.UserID, 10))))
}

func (b *Bot) onRevokeButton(c tele.Context, a action.Action) error {
	if err := b.gate.Revoke(tghelpers.BuildContext(c), a.UserID); err != nil {
		return b.fail(c, err)
	}
	_ = tghelpers.Toast(c, "Access revoked")
	return b.showAllowed(c)
}

func (b *Bot) onGrant(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, handle, err := parseGrantTarget(commandArgs(c.Text()))
	if err != nil {
		return b.fail(c, err)
	}
	if handle != "" {
		h, err := b.gate.GrantHandle(ctx, handle)
		if err != nil {
			return b.fail(c, err)
		}
		return tghelpers.SendHTML(c, fmt.Sprintf("✅ @%s will get access on first contact.", format.Escape(h)))
	}
	if err := b.gate.Grant(ctx, access.Applicant{UserID: id}); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, "✅ Access granted to "+format.Code(strconv.FormatInt(id, 10)))
}

func (b *Bot) onRevoke(c tele.Context) error {
	id, err := parseUserID(commandArgs(c.Text()))
	if err != nil {
		return b.fail(c, apperr.Usagef("usage: /revoke <id>"))
	}
	if err := b.gate.Revoke(tghelpers.BuildContext(c), id); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, "🚫 Access revoked for "+format.Code(strconv.FormatInt(id, 10)))
}

func (b *Bot) onApproveAll(c tele.Context) error {
	res, err := b.gate.ApproveAll(tghelpers.BuildContext(c))
	return b.bulkReply(c, "Approved", res, err)
}

func (b *Bot) onDenyAll(c tele.Context) error {
	res, err := b.gate.DenyAll(tghelpers.BuildContext(c))
	return b.bulkReply(c, "Declined", res, err)
}

func (b *Bot) bulkReply(c tele.Context, verb string, res access.BulkResult, err error) error {
	text := fmt.Sprintf("%s: %d, skipped: %d", verb, res.Processed, res.Skipped)
	if err != nil {
		// Items before the failure are already committed.
		_ = tghelpers.SendHTML(c, text)
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, text)
}

func (b *Bot) onAssign(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, name, desc, err := parseAssign(commandArgs(c.Text()))
	if err != nil {
		return b.fail(c, err)
	}
	t, err := b.tasks.Assign(ctx, senderID(c), userID, name, desc)
	if err != nil {
		return b.fail(c, err)
	}
	if b.notifier != nil {
		if err := b.notifier.TaskAssigned(ctx, userID, t); err != nil {
			b.notifyFailed(c, "task_assigned", userID, err)
		}
	}
	return tghelpers.SendHTML(c, fmt.Sprintf("📌 Task #%d %s assigned to %s",
		t.ID, format.Bold(t.Name), format.Code(strconv.FormatInt(userID, 10))))
}
