package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/telegram/format"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/core/telegram/state"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/apperr"
	"github.com/m3rciful/logobot/internal/schedule"
)

const (
	stateSlotDate  state.State = "schedule.date"
	stateSlotTimes state.State = "schedule.times"

	tempSlotDate  = "slot_date"
	tempSlotTimes = "slot_times"

	// monthsAhead bounds calendar navigation.
	monthsAhead  = 12
	timesPerRow  = 4
	monthPayload = "2006-01-02"
)

func (b *Bot) registerSchedule() {
	b.command("/schedule", "Schedule management", b.showScheduleMenu, adminOnly)

	b.callback(action.CalendarMonth, b.onCalendarMonth, b.admin)
	b.callback(action.CalendarDay, b.onCalendarDay, b.admin)
	b.callback(action.ToggleTime, b.onToggleTime, b.admin)
	b.callback(action.ConfirmSlots, b.onConfirmSlots, b.admin)
	b.callback(action.CancelSlot, b.onCancelSlot, b.admin)
	b.callback(action.Abort, b.onAbort)
	b.callback(action.Noop, func(c tele.Context, _ action.Action) error { return tghelpers.Toast(c, "") })

	b.fsm.Handle(stateSlotDate, b.admin(b.onTypedDate))
	b.fsm.Handle(stateSlotTimes, func(c tele.Context) error { return tghelpers.SendHTML(c, textPickTimes) })
}

var errPastDate = apperr.Usagef("date is in the past")

func (b *Bot) showScheduleMenu(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, textSchedule, keyboard.Inline(
		[]keyboard.InlineBtn{btn("➕ Publish hours", panel(sectionPublish))},
		[]keyboard.InlineBtn{btn("📋 Appointments", panel(sectionAppointments))},
		[]keyboard.InlineBtn{btn("🗑 Cancel a slot", panel(sectionCancel))},
		[]keyboard.InlineBtn{btn("◀️ Back", panel(sectionPanel))},
	))
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func noop(text string) keyboard.InlineBtn {
	return btn(text, action.Action{Kind: action.Noop})
}

// calendarRows renders month as a Monday-first grid. Days before today are
// inert, and navigation stays between the current month and monthsAhead.
func calendarRows(month, today time.Time) [][]keyboard.InlineBtn {
	month = monthOf(month)
	today = dayOf(today)
	current := monthOf(today)

	header := make([]keyboard.InlineBtn, 0, 3)
	if month.After(current) {
		header = append(header, btn("◀️", action.Action{Kind: action.CalendarMonth, Date: month.AddDate(0, -1, 0).Format(monthPayload)}))
	} else {
		header = append(header, noop(" "))
	}
	header = append(header, noop(month.Format("January 2006")))
	if month.Before(current.AddDate(0, monthsAhead, 0)) {
		header = append(header, btn("▶️", action.Action{Kind: action.CalendarMonth, Date: month.AddDate(0, 1, 0).Format(monthPayload)}))
	} else {
		header = append(header, noop(" "))
	}

	rows := [][]keyboard.InlineBtn{header}
	weekdays := make([]keyboard.InlineBtn, 0, 7)
	for _, d := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		weekdays = append(weekdays, noop(d))
	}
	rows = append(rows, weekdays)

	lead := (int(month.Weekday()) + 6) % 7
	cells := make([]keyboard.InlineBtn, 0, 42)
	for i := 0; i < lead; i++ {
		cells = append(cells, noop(" "))
	}
	for d := month; d.Month() == month.Month(); d = d.AddDate(0, 0, 1) {
		label := fmt.Sprint(d.Day())
		if d.Before(today) {
			cells = append(cells, noop("·"))
			continue
		}
		cells = append(cells, btn(label, action.Action{Kind: action.CalendarDay, Date: d.Format(schedule.DateLayout)}))
	}
	for len(cells)%7 != 0 {
		cells = append(cells, noop(" "))
	}
	rows = append(rows, keyboard.Chunk(cells, 7)...)
	return append(rows, []keyboard.InlineBtn{btn("✖️ Cancel", action.Action{Kind: action.Abort})})
}

func (b *Bot) startCalendar(c tele.Context) error {
	id := senderID(c)
	b.fsm.Clear(id)
	b.fsm.SetState(id, stateSlotDate)
	now := b.now()
	return tghelpers.EditOrSendHTML(c, textPickDate+"\n<i>You can also type it as YYYY-MM-DD.</i>",
		keyboard.Inline(calendarRows(now, now)...))
}

func (b *Bot) onCalendarMonth(c tele.Context, a action.Action) error {
	month, err := time.ParseInLocation(monthPayload, a.Date, b.now().Location())
	if err != nil {
		return tghelpers.Toast(c, textExpired)
	}
	now := b.now()
	if monthOf(month).Before(monthOf(now)) {
		month = now
	}
	return tghelpers.EditOrSendHTML(c, textPickDate, keyboard.Inline(calendarRows(month, now)...))
}

func (b *Bot) onCalendarDay(c tele.Context, a action.Action) error {
	return b.pickDate(c, a.Date)
}

func (b *Bot) onTypedDate(c tele.Context) error {
	return b.pickDate(c, c.Text())
}

// pickDate moves the dialogue to time selection for date.
func (b *Bot) pickDate(c tele.Context, input string) error {
	date, err := schedule.NormalizeDate(input)
	if err != nil {
		return b.fail(c, err)
	}
	if date < dayOf(b.now()).Format(schedule.DateLayout) {
		return b.fail(c, errPastDate)
	}
	id := senderID(c)
	b.fsm.SetState(id, stateSlotTimes)
	b.fsm.SetTemp(id, tempSlotDate, date)
	b.fsm.SetTemp(id, tempSlotTimes, map[string]bool{})
	return b.renderTimes(c, date, nil)
}

func (b *Bot) renderTimes(c tele.Context, date string, selected map[string]bool) error {
	text := format.Lines(
		"📅 "+format.Bold(date),
		textPickTimes,
	)
	return tghelpers.EditOrSendHTML(c, text, keyboard.Inline(timeRows(b.hours.Times(), selected)...))
}

// timeRows lays out the time picker with selected times checked.
func timeRows(times []string, selected map[string]bool) [][]keyboard.InlineBtn {
	buttons := make([]keyboard.InlineBtn, 0, len(times))
	for _, t := range times {
		label := t
		if selected[t] {
			label = "✅ " + t
		}
		buttons = append(buttons, btn(label, action.Action{Kind: action.ToggleTime, Time: t}))
	}
	rows := keyboard.Chunk(buttons, timesPerRow)
	return append(rows, []keyboard.InlineBtn{
		btn("💾 Publish", action.Action{Kind: action.ConfirmSlots}),
		btn("✖️ Cancel", action.Action{Kind: action.Abort}),
	})
}

// draft returns the date and selection of the running dialogue.
func (b *Bot) draft(id int64) (string, map[string]bool, bool) {
	if b.fsm.GetState(id) != stateSlotTimes {
		return "", nil, false
	}
	date, ok1 := state.Temp[string](b.fsm, id, tempSlotDate)
	sel, ok2 := state.Temp[map[string]bool](b.fsm, id, tempSlotTimes)
	return date, sel, ok1 && ok2
}

func (b *Bot) onToggleTime(c tele.Context, a action.Action) error {
	id := senderID(c)
	date, _, ok := b.draft(id)
	if !ok {
		return tghelpers.Toast(c, textExpired)
	}
	var sel map[string]bool
	ok = b.fsm.UpdateTemp(id, tempSlotTimes, func(old any) any {
		prev, _ := old.(map[string]bool)
		sel = toggled(prev, a.Time)
		return sel
	})
	if !ok {
		return tghelpers.Toast(c, textExpired)
	}
	return b.renderTimes(c, date, sel)
}

// toggled returns a copy of sel with tm flipped. sel may still be read by
// another update of the same admin and is left untouched.
func toggled(sel map[string]bool, tm string) map[string]bool {
	next := make(map[string]bool, len(sel)+1)
	for t, on := range sel {
		if on {
			next[t] = true
		}
	}
	if sel[tm] {
		delete(next, tm)
	} else {
		next[tm] = true
	}
	return next
}

func selectedTimes(sel map[string]bool) []string {
	out := make([]string, 0, len(sel))
	for t, on := range sel {
		if on {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Bot) onConfirmSlots(c tele.Context, _ action.Action) error {
	id := senderID(c)
	date, sel, ok := b.draft(id)
	if !ok {
		return tghelpers.Toast(c, textExpired)
	}
	times := selectedTimes(sel)
	if len(times) == 0 {
		return tghelpers.Toast(c, textNoTimes)
	}
	added, err := b.schedule.PublishSlots(tghelpers.BuildContext(c), date, times)
	if err != nil {
		return b.fail(c, err)
	}
	b.fsm.Clear(id)
	return tghelpers.EditOrSendHTML(c, format.Lines(
		"✅ Published "+format.Bold(date),
		fmt.Sprintf("New slots: %d of %d", added, len(times)),
		format.Escape(strings.Join(times, ", ")),
	), backTo(sectionSchedule))
}

func (b *Bot) onAbort(c tele.Context, _ action.Action) error {
	b.fsm.Clear(senderID(c))
	return tghelpers.EditOrSendHTML(c, textCancelled)
}

func slotLine(s schedule.Slot) string {
	line := s.Date + " " + s.Time
	if s.Status == schedule.Booked && s.Occupant != nil {
		return fmt.Sprintf("%s, booked by %d", line, *s.Occupant)
	}
	return line + ", free"
}

func (b *Bot) showAppointments(c tele.Context) error {
	slots, err := b.schedule.Appointments(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(slots) == 0 {
		return tghelpers.EditOrSendHTML(c, textNoSlots, backTo(sectionSchedule))
	}
	lines := []string{format.Bold(fmt.Sprintf("Upcoming slots: %d", len(slots)))}
	for i, s := range slots {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("… and %d more", len(slots)-maxListed))
			break
		}
		lines = append(lines, format.Escape(slotLine(s)))
	}
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), backTo(sectionSchedule))
}

func (b *Bot) showCancelList(c tele.Context) error {
	slots, err := b.schedule.Appointments(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(slots) == 0 {
		return tghelpers.EditOrSendHTML(c, textNoSlots, backTo(sectionSchedule))
	}
	buttons := make([]keyboard.InlineBtn, 0, min(len(slots), maxListed))
	for _, s := range slots[:min(len(slots), maxListed)] {
		buttons = append(buttons, btn("🗑 "+slotLine(s), action.Action{Kind: action.CancelSlot, Date: s.Date, Time: s.Time}))
	}
	rows := keyboard.Chunk(buttons, 1)
	rows = append(rows, []keyboard.InlineBtn{btn("◀️ Back", panel(sectionSchedule))})
	return tghelpers.EditOrSendHTML(c, "Choose a slot to cancel:", keyboard.Inline(rows...))
}

func (b *Bot) onCancelSlot(c tele.Context, a action.Action) error {
	ctx := tghelpers.BuildContext(c)
	slot, found, err := b.schedule.Cancel(ctx, a.Date, a.Time)
	if err != nil {
		return b.fail(c, err)
	}
	if !found {
		_ = tghelpers.Toast(c, "Slot was already removed")
		return b.showCancelList(c)
	}
	if slot.Occupant != nil && b.notifier != nil {
		if err := b.notifier.SlotCancelled(ctx, *slot.Occupant, slot); err != nil {
			b.notifyFailed(c, "slot_cancelled", *slot.Occupant, err)
		}
	}
	_ = tghelpers.Toast(c, "Slot cancelled")
	return b.showCancelList(c)
}
