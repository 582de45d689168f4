package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender 記錄送出的訊息，可設定互動訊息失敗
type recordingSender struct {
	texts       []string
	bodies      []string
	buttonSends [][]Button
	failButtons bool
}

func (r *recordingSender) SendText(_ context.Context, _ string, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSender) SendButtons(_ context.Context, _ string, body string, buttons []Button) error {
	if r.failButtons {
		return errors.New("interactive send rejected")
	}
	r.bodies = append(r.bodies, body)
	r.buttonSends = append(r.buttonSends, buttons)
	return nil
}

func TestDeliverPlainText(t *testing.T) {
	sender := &recordingSender{}

	Deliver(context.Background(), sender, "15550001111", OutgoingMessage{Text: "hello"})

	require.Len(t, sender.texts, 1)
	assert.Equal(t, "hello", sender.texts[0])
	assert.Empty(t, sender.buttonSends)
}

func TestDeliverSingleButtonBatch(t *testing.T) {
	sender := &recordingSender{}
	msg := OutgoingMessage{Text: "pick one", Buttons: []Button{
		{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"},
	}}

	Deliver(context.Background(), sender, "15550001111", msg)

	require.Len(t, sender.buttonSends, 1)
	assert.Equal(t, "pick one", sender.bodies[0])
	assert.Len(t, sender.buttonSends[0], 3)
}

func TestDeliverChunksWithContinuation(t *testing.T) {
	sender := &recordingSender{}
	msg := OutgoingMessage{Text: "pick one", Buttons: []Button{
		{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"},
		{ID: "d", Title: "D"}, {ID: "e", Title: "E"},
	}}

	Deliver(context.Background(), sender, "15550001111", msg)

	require.Len(t, sender.buttonSends, 2)
	assert.Equal(t, "pick one", sender.bodies[0])
	assert.Equal(t, "More options 👇", sender.bodies[1])
	assert.Len(t, sender.buttonSends[0], 3)
	assert.Len(t, sender.buttonSends[1], 2)
}

func TestDeliverDegradesToBulletText(t *testing.T) {
	sender := &recordingSender{failButtons: true}
	msg := OutgoingMessage{Text: "pick one", Buttons: []Button{
		{ID: "a", Title: "Swap a dish"}, {ID: "b", Title: "Find food near me"},
	}}

	Deliver(context.Background(), sender, "15550001111", msg)

	require.Len(t, sender.texts, 1)
	assert.True(t, strings.HasPrefix(sender.texts[0], "pick one"))
	assert.Contains(t, sender.texts[0], "• Swap a dish")
	assert.Contains(t, sender.texts[0], "• Find food near me")
}
