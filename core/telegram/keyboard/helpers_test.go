package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	m := Inline(
		[]InlineBtn{{Text: "Approve", Unique: "approve", Data: "222"}, {Text: "Deny", Unique: "deny", Data: "222"}},
		nil,
		[]InlineBtn{{Text: "Channel", URL: "https://t.me/clinic"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "approve", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "222", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "deny", m.InlineKeyboard[0][1].Unique)
	assert.Equal(t, "https://t.me/clinic", m.InlineKeyboard[1][0].URL)
}

func TestChunk(t *testing.T) {
	btns := make([]InlineBtn, 7)
	rows := Chunk(btns, 3)
	require.Len(t, rows, 3)
	assert.Len(t, rows[2], 1)
	assert.Len(t, Chunk(btns, 0), 7)
	assert.Empty(t, Chunk(nil, 3))
	assert.Len(t, Column(btns).InlineKeyboard, 7)
}

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"A", "B"}, nil, []string{"C"})
	require.Len(t, m.ReplyKeyboard, 2)
	assert.Equal(t, "B", m.ReplyKeyboard[0][1].Text)
	assert.True(t, m.ResizeKeyboard)
}
