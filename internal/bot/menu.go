package bot

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/internal/action"
)

// Admin panel sections carried by action.Panel.
const (
	sectionPanel        = "home"
	sectionPending      = "pending"
	sectionAllowed      = "allowed"
	sectionHandles      = "handles"
	sectionSchedule     = "schedule"
	sectionPublish      = "publish"
	sectionAppointments = "appointments"
	sectionCancel       = "cancel"
	sectionStats        = "stats"
	sectionBroadcast    = "broadcast"
	sectionSettings     = "settings"
)

func (b *Bot) registerMenu() {
	b.command("/start", "Main menu", b.onStart)
	b.command("/help", "Help", b.onHelp)
	b.command("/cancel", "Stop the current dialogue", b.onCancel)
	b.command("/info", "About the center", reply(textInfo), hidden, labels(labelInfo))
	b.command("/faq", "Frequently asked questions", reply(textFAQ), hidden, labels(labelFAQ))
	b.command("/contact", "Contact the specialist", reply(textContact), hidden, labels(labelContact))
	b.command("/book", "Make an appointment", reply(textBookStub), hidden, labels(labelBook))
	b.command("/appointments", "My appointments", reply(textMineStub), hidden, labels(labelMine))
	b.command("/panel", "Admin panel", b.onPanel, adminOnly, labels(labelPanel))

	b.callback(action.Panel, b.onPanelSection, b.admin)
}

func reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendHTML(c, text) }
}

// mainKeyboard is the reply keyboard. Only admins see the panel button.
func mainKeyboard(isAdmin bool) *tele.ReplyMarkup {
	rows := [][]string{
		{labelBook, labelMine},
		{labelExercises, labelTasks},
		{labelInfo, labelContact},
		{labelFAQ},
	}
	if isAdmin {
		rows = append(rows, []string{labelPanel})
	}
	return keyboard.ReplyButtons(rows...)
}

func (b *Bot) onStart(c tele.Context) error {
	b.fsm.Clear(senderID(c))
	return tghelpers.SendHTML(c, textWelcome, mainKeyboard(b.gate.IsAdmin(senderID(c))))
}

func (b *Bot) onHelp(c tele.Context) error {
	text := textHelp
	if b.gate.IsAdmin(senderID(c)) {
		text += textAdminHelp
	}
	return tghelpers.SendHTML(c, text)
}

func (b *Bot) onCancel(c tele.Context) error {
	id := senderID(c)
	if !b.fsm.InProgress(id) {
		return tghelpers.SendHTML(c, textNothingToDo)
	}
	b.fsm.Clear(id)
	return tghelpers.SendHTML(c, textCancelled)
}

func panel(section string) action.Action {
	return action.Action{Kind: action.Panel, Section: section}
}

func panelKeyboard() *tele.ReplyMarkup {
	return keyboard.Inline(
		[]keyboard.InlineBtn{
			btn("📝 Requests", panel(sectionPending)),
			btn("👥 Users", panel(sectionAllowed)),
		},
		[]keyboard.InlineBtn{
			btn("🔖 Handles", panel(sectionHandles)),
		},
		[]keyboard.InlineBtn{
			btn("📅 Schedule", panel(sectionSchedule)),
			btn("📊 Statistics", panel(sectionStats)),
		},
		[]keyboard.InlineBtn{
			btn("📨 Broadcast", panel(sectionBroadcast)),
			btn("⚙️ Settings", panel(sectionSettings)),
		},
	)
}

func (b *Bot) onPanel(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, textPanel, panelKeyboard())
}

func (b *Bot) onPanelSection(c tele.Context, a action.Action) error {
	switch a.Section {
	case sectionPanel:
		return b.onPanel(c)
	case sectionPending:
		return b.showPending(c)
	case sectionAllowed:
		return b.showAllowed(c)
	case sectionHandles:
		return b.showHandles(c)
	case sectionSchedule:
		return b.showScheduleMenu(c)
	case sectionPublish:
		return b.startCalendar(c)
	case sectionAppointments:
		return b.showAppointments(c)
	case sectionCancel:
		return b.showCancelList(c)
	case sectionStats, sectionBroadcast, sectionSettings:
		return tghelpers.EditOrSendHTML(c, textPlaceholder, backTo(sectionPanel))
	}
	return tghelpers.Toast(c, textExpired)
}

// backTo is a one-button keyboard returning to a panel section.
func backTo(section string) *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.InlineBtn{btn("◀️ Back", panel(section))})
}
