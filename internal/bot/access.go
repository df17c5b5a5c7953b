package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/action"
)

func (b *Bot) registerAccess() {
	b.callback(action.CheckSubscription, b.onCheckSubscription)
	b.callback(action.RequestAccess, b.onRequestAccess)
}

func (b *Bot) subscribeKeyboard() *tele.ReplyMarkup {
	var rows [][]keyboard.InlineBtn
	if b.channelURL != "" {
		rows = append(rows, []keyboard.InlineBtn{{Text: "📢 Subscribe to the channel", URL: b.channelURL}})
	}
	rows = append(rows, []keyboard.InlineBtn{btn("🔄 Check subscription", action.Action{Kind: action.CheckSubscription})})
	return keyboard.Inline(rows...)
}

func requestKeyboard() *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.InlineBtn{btn("📝 Request access", action.Action{Kind: action.RequestAccess})})
}

// prompt tells a user without access what to do next.
func (b *Bot) prompt(c tele.Context, d access.Decision) error {
	switch {
	case d.Status == access.StatusPending:
		return tghelpers.EditOrSendHTML(c, textPending)
	case d.Prompt == access.PromptSubscribe:
		return tghelpers.EditOrSendHTML(c, textSubscribe, b.subscribeKeyboard())
	default:
		return tghelpers.EditOrSendHTML(c, textRequestAccess, requestKeyboard())
	}
}

// onCheckSubscription re-runs the gate after the user claims to have subscribed.
func (b *Bot) onCheckSubscription(c tele.Context, _ action.Action) error {
	ctx := tghelpers.BuildContext(c)
	d, err := b.gate.CheckAccess(ctx, applicantOf(c.Sender()))
	if err != nil {
		return b.fail(c, err)
	}
	switch {
	case d.Status.Permitted():
		return b.showCategories(c)
	case d.Prompt == access.PromptSubscribe:
		return tghelpers.Toast(c, textNotSubscribed)
	case d.Status == access.StatusPending:
		return tghelpers.EditOrSendHTML(c, textPending)
	default:
		return tghelpers.EditOrSendHTML(c, textSubscribed, requestKeyboard())
	}
}

func (b *Bot) onRequestAccess(c tele.Context, _ action.Action) error {
	ctx := tghelpers.BuildContext(c)
	created, err := b.gate.RequestAccess(ctx, applicantOf(c.Sender()))
	switch {
	case errors.Is(err, access.ErrAlreadyAllowed):
		return tghelpers.Toast(c, textHasAccess)
	case err != nil:
		return b.fail(c, err)
	case !created:
		return tghelpers.Toast(c, textRequestExists)
	}
	_ = tghelpers.Toast(c, textRequestSent)
	return tghelpers.EditOrSendHTML(c, textPending)
}
