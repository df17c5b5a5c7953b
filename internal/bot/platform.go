package bot

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/telegram/format"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/schedule"
	"github.com/m3rciful/logobot/internal/tasks"
)

// API is the part of *tele.Bot used outside a handler.
type API interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Platform checks channel membership and pushes notifications to users.
// Sends are synchronous so callers see the error.
type Platform struct {
	api     API
	channel int64
}

var (
	_ access.Membership = (*Platform)(nil)
	_ access.Notifier   = (*Platform)(nil)
)

// NewPlatform wraps api. channel is the subscription channel id.
func NewPlatform(api API, channel int64) *Platform {
	return &Platform{api: api, channel: channel}
}

// IsMember reports whether userID is subscribed to the channel.
func (p *Platform) IsMember(_ context.Context, userID int64) (bool, error) {
	m, err := p.api.ChatMemberOf(tele.ChatID(p.channel), tele.ChatID(userID))
	if err != nil {
		return false, err
	}
	switch m.Role {
	case tele.Left, tele.Kicked:
		return false, nil
	case tele.Restricted:
		return m.Member, nil
	}
	return true, nil
}

func (p *Platform) send(userID int64, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	_, err := p.api.Send(tele.ChatID(userID), text, opts)
	return err
}

// AccessRequested asks an admin to approve or deny req.
func (p *Platform) AccessRequested(_ context.Context, adminID int64, req access.PendingRequest) error {
	text := "📝 " + format.Bold("New access request") + "\n\n" + format.Lines(
		"From: "+format.Escape(req.Label()),
		"ID: "+format.Code(strconv.FormatInt(req.UserID, 10)),
	)
	return p.send(adminID, text, decisionKeyboard(req.UserID))
}

func (p *Platform) AccessGranted(_ context.Context, userID int64) error {
	return p.send(userID, textGranted, nil)
}

func (p *Platform) AccessDenied(_ context.Context, userID int64) error {
	return p.send(userID, textDenied, nil)
}

func (p *Platform) AccessRevoked(_ context.Context, userID int64) error {
	return p.send(userID, textRevoked, nil)
}

// SlotCancelled tells the former occupant that their appointment is gone.
func (p *Platform) SlotCancelled(_ context.Context, userID int64, s schedule.Slot) error {
	return p.send(userID, fmt.Sprintf("❌ Your appointment on %s at %s was cancelled by the center.", s.Date, s.Time), nil)
}

// TaskAssigned tells a user about a task an admin created for them.
func (p *Platform) TaskAssigned(_ context.Context, userID int64, t tasks.Task) error {
	text := "📌 New task: " + format.Bold(t.Name)
	if t.Description != "" {
		text += "\n" + format.Escape(t.Description)
	}
	return p.send(userID, text+"\n\nOpen /tasks to track it.", nil)
}

func decisionKeyboard(userID int64) *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.InlineBtn{
		btn("✅ Approve", action.Action{Kind: action.Approve, UserID: userID}),
		btn("❌ Deny", action.Action{Kind: action.Deny, UserID: userID}),
	})
}

// btn builds an inline button carrying a.
func btn(text string, a action.Action) keyboard.InlineBtn {
	unique, data := a.Data()
	return keyboard.InlineBtn{Text: text, Unique: unique, Data: data}
}
