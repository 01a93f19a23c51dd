package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource map[spider.Region]*spider.Result

func (f fakeSource) Latest(ctx context.Context, region spider.Region) (*spider.Result, error) {
	if res, ok := f[region]; ok {
		return res, nil
	}
	return nil, context.DeadlineExceeded
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// 用get_live_results的回复确认之前的消息已被处理
func roundTrip(t *testing.T, conn *websocket.Conn, region spider.Region) Message {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Request{Event: EventGetLive, Region: string(region)}))
	return read(t, conn)
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishRespectsSubscription(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	south := dial(t, srv)
	all := dial(t, srv)
	waitClients(t, h, 2)

	require.NoError(t, south.WriteJSON(Request{Event: EventSubscribe, Region: "south"}))
	live := roundTrip(t, south, spider.South)
	assert.Equal(t, EventLiveResults, live.Event)
	assert.Empty(t, live.Results)

	h.Publish(spider.NewResult(spider.North, "Hà Nội", "2024-03-04"))
	h.Publish(spider.NewResult(spider.South, "An Giang", "2024-03-04"))

	msg := read(t, south)
	assert.Equal(t, EventUpdate, msg.Event)
	require.NotNil(t, msg.Data)
	assert.Equal(t, "An Giang", msg.Data.Province)
	assert.Empty(t, msg.Results)

	first := read(t, all)
	second := read(t, all)
	assert.Equal(t, "Hà Nội", first.Data.Province)
	assert.Equal(t, "An Giang", second.Data.Province)
}

func TestGetLiveResults(t *testing.T) {
	res := spider.NewResult(spider.North, "Hà Nội", "2024-03-04")
	res.Prizes.Special = "12345"
	h := NewHub(WithSource(fakeSource{spider.North: res}))
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	msg := roundTrip(t, conn, spider.North)
	assert.Equal(t, EventLiveResults, msg.Event)
	assert.Equal(t, spider.North, msg.Region)
	assert.Nil(t, msg.Data)
	require.Len(t, msg.Results, 1)
	assert.Equal(t, "12345", msg.Results[0].Prizes.Special)
}

func TestInvalidRequests(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{Event: EventSubscribe, Region: "east"}))
	assert.Equal(t, EventError, read(t, conn).Event)

	require.NoError(t, conn.WriteJSON(Request{Event: "dance", Region: "north"}))
	msg := read(t, conn)
	assert.Equal(t, EventError, msg.Event)
	assert.Contains(t, msg.Error, "dance")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops}")))
	assert.Equal(t, EventError, read(t, conn).Event)

	// 连接仍然可用
	assert.Equal(t, EventLiveResults, roundTrip(t, conn, spider.Central).Event)
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)

	h.Close()
	assert.Equal(t, 0, h.Len())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
