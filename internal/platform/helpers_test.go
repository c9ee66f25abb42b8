package platform

import (
	"testing"

	"chatgate/internal/interaction"
)

func newTestEvent(t *testing.T) *interaction.Event {
	t.Helper()
	return interaction.NewEvent(interaction.KindButton, "orders:confirm", "tok-abc123")
}

func replyOK() interaction.Reply {
	return interaction.Reply{Content: "ok"}
}
