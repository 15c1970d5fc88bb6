package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"termswap/core/events"
	"termswap/core/types"
)

func readStreamEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) types.Event {
	t.Helper()
	kind, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, kind)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestEventStreamReplaysBacklogThenFollows(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)

	ts := httptest.NewServer(h.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	first := readStreamEvent(ctx, t, conn)
	require.Equal(t, events.TypeTermswapPairCreated, first.Type)
	require.Equal(t, pair.Address, first.Attributes["pair"])

	rec := h.do(t, http.MethodPost, "/v1/owner/pending", ownerAccount, ownerRequest{Pending: bob.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(t, http.MethodPost, "/v1/owner/accept", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	next := readStreamEvent(ctx, t, conn)
	require.Equal(t, events.TypeTermswapOwnerChanged, next.Type)
	require.Equal(t, bob.Hex(), next.Attributes["owner"])
}

func TestEventStreamWithoutSink(t *testing.T) {
	h := newHarness(t, false)
	h.server.events = nil

	rec := h.do(t, http.MethodGet, "/v1/events/stream", common.Address{}, nil)
	requireError(t, rec, http.StatusServiceUnavailable, "unavailable")
}
