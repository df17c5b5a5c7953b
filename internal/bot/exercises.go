package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/telegram/format"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/keyboard"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/exercises"
)

func (b *Bot) registerExercises() {
	b.command("/exercises", "Exercise videos", b.gated(b.showCategories), hidden, labels(labelExercises))

	b.callback(action.Categories, func(c tele.Context, _ action.Action) error { return b.showCategories(c) }, b.gated)
	b.callback(action.Category, b.onCategory, b.gated)
	b.callback(action.Refresh, b.onRefresh, b.gated)
	b.callback(action.Video, b.onVideo, b.gated)
}

func (b *Bot) showCategories(c tele.Context) error {
	cats := b.exercises.Categories()
	buttons := make([]keyboard.InlineBtn, 0, len(cats))
	for _, cat := range cats {
		buttons = append(buttons, btn(cat.Title, action.Action{Kind: action.Category, Category: cat.Code}))
	}
	return tghelpers.EditOrSendHTML(c, textCategories, keyboard.Inline(keyboard.Chunk(buttons, 2)...))
}

func (b *Bot) onCategory(c tele.Context, a action.Action) error {
	return b.listVideos(c, a.Category, false)
}

func (b *Bot) onRefresh(c tele.Context, a action.Action) error {
	return b.listVideos(c, a.Category, true)
}

func (b *Bot) listVideos(c tele.Context, code string, refresh bool) error {
	cat, ok := b.exercises.Category(code)
	if !ok {
		return tghelpers.Toast(c, textExpired)
	}
	videos, err := b.exercises.Search(tghelpers.BuildContext(c), senderID(c), code, refresh)
	if err != nil {
		return b.fail(c, err)
	}
	back := btn("◀️ Categories", action.Action{Kind: action.Categories})
	if len(videos) == 0 {
		return tghelpers.EditOrSendHTML(c, format.Bold(cat.Title)+"\n\n"+textNoVideos,
			keyboard.Inline([]keyboard.InlineBtn{back}))
	}
	rows := videoRows(code, videos)
	rows = append(rows, []keyboard.InlineBtn{
		btn("🔄 More", action.Action{Kind: action.Refresh, Category: code}),
		back,
	})
	return tghelpers.EditOrSendHTML(c, "🎬 "+format.Bold(cat.Title)+"\n\n<i>Choose a video:</i>", keyboard.Inline(rows...))
}

// videoRows puts one video per row. Buttons carry list positions, not ids.
func videoRows(code string, videos []exercises.Video) [][]keyboard.InlineBtn {
	buttons := make([]keyboard.InlineBtn, 0, len(videos))
	for i, v := range videos {
		buttons = append(buttons, btn("▶️ "+format.Truncate(v.Title, 48), action.Action{Kind: action.Video, Category: code, Index: i}))
	}
	return keyboard.Chunk(buttons, 1)
}

func (b *Bot) onVideo(c tele.Context, a action.Action) error {
	// An expired list comes back as not found and is toasted by fail.
	v, err := b.exercises.Video(senderID(c), a.Category, a.Index)
	if err != nil {
		return b.fail(c, err)
	}
	text := "🎬 " + format.Bold(v.Title)
	if v.Channel != "" {
		text += "\n" + format.Italic(v.Channel)
	}
	return tghelpers.EditOrSendHTML(c, text, keyboard.Inline(
		[]keyboard.InlineBtn{{Text: "▶️ Watch on YouTube", URL: v.URL()}},
		[]keyboard.InlineBtn{btn("◀️ Back", action.Action{Kind: action.Category, Category: a.Category})},
	))
}
