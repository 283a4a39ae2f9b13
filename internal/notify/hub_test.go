package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/PratikDhanave/intake-edge/internal/models"
)

func TestHub_PublishFanOut(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()
	assert.Equal(t, 2, h.Subscribers())

	h.Publish(models.InboundMessage{ProviderSID: "SM1"})
	assert.Equal(t, "SM1", (<-a).ProviderSID)
	assert.Equal(t, "SM1", (<-b).ProviderSID)

	cancelA()
	cancelA()
	assert.Equal(t, 1, h.Subscribers())
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(models.InboundMessage{ProviderSID: "SM"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_WebSocketStream(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Publish(models.InboundMessage{ProviderSID: "SM42", Body: "hello", Channel: models.ChannelWhatsApp})

	var got models.InboundMessage
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, "SM42", got.ProviderSID)
	assert.Equal(t, "hello", got.Body)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
