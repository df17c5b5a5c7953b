package bot

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/telegram/format"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/core/telegram/state"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/tasks"
)

const (
	stateTaskName        state.State = "task.name"
	stateTaskDescription state.State = "task.description"

	tempTaskName = "task_name"
)

func (b *Bot) registerTasks() {
	b.command("/tasks", "Your tasks and timers", b.gated(b.showTasks), labels(labelTasks))
	b.command("/newtask", "Create a task", b.gated(b.onNewTask))

	b.callback(action.TaskStart, b.onTaskStart, b.gated)
	b.callback(action.TaskStop, b.onTaskStop, b.gated)

	b.fsm.Handle(stateTaskName, b.onTaskName)
	b.fsm.Handle(stateTaskDescription, b.onTaskDescription)
}

func (b *Bot) onNewTask(c tele.Context) error {
	id := senderID(c)
	b.fsm.Clear(id)
	b.fsm.SetState(id, stateTaskName)
	return tghelpers.SendHTML(c, textTaskName)
}

func (b *Bot) onTaskName(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	if err := tasks.ValidateName(name); err != nil {
		// Stay in the step so the user can retry.
		return b.fail(c, err)
	}
	id := senderID(c)
	b.fsm.SetTemp(id, tempTaskName, name)
	b.fsm.SetState(id, stateTaskDescription)
	return tghelpers.SendHTML(c, textTaskDescription)
}

func (b *Bot) onTaskDescription(c tele.Context) error {
	id := senderID(c)
	name, ok := state.Temp[string](b.fsm, id, tempTaskName)
	if !ok {
		b.fsm.Clear(id)
		return tghelpers.SendHTML(c, textExpired)
	}
	desc := strings.TrimSpace(c.Text())
	if desc == "-" {
		desc = ""
	}
	t, err := b.tasks.Create(tghelpers.BuildContext(c), id, name, desc)
	if err != nil {
		return b.fail(c, err)
	}
	b.fsm.Clear(id)
	return tghelpers.SendHTML(c, fmt.Sprintf("✅ Task #%d %s created.\nOpen /tasks to start a timer.", t.ID, format.Bold(t.Name)))
}

// formatDuration renders seconds as "1h 02m 03s", dropping leading zero units.
func formatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs%3600/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func taskLine(t tasks.Task) string {
	mark := "▫️"
	switch {
	case t.Running:
		mark = "⏱"
	case t.Completed:
		mark = "✅"
	}
	line := fmt.Sprintf("%s #%d %s, %s", mark, t.ID, format.Bold(t.Name), formatDuration(t.Tracked))
	if t.Assigned() {
		line += " " + format.Italic("(assigned)")
	}
	if t.Description != "" {
		line += "\n    " + format.Escape(format.Truncate(t.Description, 120))
	}
	return line
}

func taskRows(list []tasks.Task) [][]keyboard.InlineBtn {
	rows := make([][]keyboard.InlineBtn, 0, len(list))
	for _, t := range list {
		if t.Completed && !t.Running {
			continue
		}
		label := format.Truncate(t.Name, 28)
		if t.Running {
			rows = append(rows, []keyboard.InlineBtn{btn("⏹ Stop "+label, action.Action{Kind: action.TaskStop, TaskID: t.ID})})
			continue
		}
		rows = append(rows, []keyboard.InlineBtn{btn("▶️ Start "+label, action.Action{Kind: action.TaskStart, TaskID: t.ID})})
	}
	return rows
}

func (b *Bot) showTasks(c tele.Context) error {
	list, err := b.tasks.List(tghelpers.BuildContext(c), senderID(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(list) == 0 {
		return tghelpers.EditOrSendHTML(c, textNoTasks)
	}
	if len(list) > maxListed {
		list = list[:maxListed]
	}
	lines := []string{format.Bold("Your tasks")}
	for _, t := range list {
		lines = append(lines, taskLine(t))
	}
	return tghelpers.EditOrSendHTML(c, format.Lines(lines...), keyboard.Inline(taskRows(list)...))
}

func (b *Bot) onTaskStart(c tele.Context, a action.Action) error {
	if err := b.tasks.Start(tghelpers.BuildContext(c), senderID(c), a.TaskID); err != nil {
		return b.fail(c, err)
	}
	_ = tghelpers.Toast(c, textTimerStarted)
	return b.showTasks(c)
}

func (b *Bot) onTaskStop(c tele.Context, a action.Action) error {
	took, err := b.tasks.Stop(tghelpers.BuildContext(c), senderID(c), a.TaskID)
	if err != nil {
		return b.fail(c, err)
	}
	_ = tghelpers.Toast(c, "⏹ Stopped after "+formatDuration(int64(took/time.Second)))
	return b.showTasks(c)
}
