package broadcast

// 基于websocket的实时推送：客户端可以订阅某个地区，新结果只推给订阅了该地区或没有订阅任何地区的客户端

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 消息事件名
const (
	EventSubscribe   = "subscribe"
	EventGetLive     = "get_live_results"
	EventUpdate      = "lottery_update"
	EventLiveResults = "live_results"
	EventError       = "error"
)

const writeWait = 10 * time.Second

// 查询某地区最新结果，不存在时返回nil
type LiveSource interface {
	Latest(ctx context.Context, region spider.Region) (*spider.Result, error)
}

// 客户端发来的消息
type Request struct {
	Event  string `json:"event"`
	Region string `json:"region"`
}

// 发往客户端的消息，lottery_update携带data，live_results携带results
type Message struct {
	Event   string           `json:"event"`
	Region  spider.Region    `json:"region,omitempty"`
	Data    *spider.Result   `json:"data,omitempty"`
	Results []*spider.Result `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	region spider.Region // 为空表示接收全部地区
}

func (c *client) subscribed(region spider.Region) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region == "" || c.region == region
}

type Hub struct {
	options
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(opts ...Option) *Hub {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Hub{
		options: options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// 当前连接数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

/*
输入一条开奖结果，无输出

将结果编码为lottery_update消息，投递到订阅了该地区的客户端的发送队列；队列已满的客户端跳过本条消息
*/
func (h *Hub) Publish(res *spider.Result) {
	data, err := json.Marshal(Message{Event: EventUpdate, Region: res.Region, Data: res})
	if err != nil {
		h.logger.Error("encode update failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(res.Region) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client send queue full, update dropped", zap.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// 升级为websocket连接并处理该连接直到断开
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// 断开全部连接，之后的连接请求会被直接关闭
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Debug("client disconnected", zap.String("remote", c.conn.RemoteAddr().String()))
	}()

	pongWait := 2 * h.pingPeriod
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				h.reply(c, Message{Event: EventError, Error: "invalid message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		h.handle(ctx, c, req)
	}
}

func (h *Hub) handle(ctx context.Context, c *client, req Request) {
	region, err := spider.ParseRegion(req.Region)
	if err != nil && !(req.Event == EventSubscribe && req.Region == "") {
		h.reply(c, Message{Event: EventError, Error: err.Error()})
		return
	}

	switch req.Event {
	case EventSubscribe:
		c.mu.Lock()
		c.region = region
		c.mu.Unlock()
		h.logger.Debug("client subscribed", zap.String("region", string(region)))
	case EventGetLive:
		msg := Message{Event: EventLiveResults, Region: region}
		if h.source != nil {
			res, err := h.source.Latest(ctx, region)
			if err != nil {
				h.logger.Debug("no live results", zap.String("region", string(region)), zap.Error(err))
			} else {
				msg.Results = []*spider.Result{res}
			}
		}
		h.reply(c, msg)
	default:
		h.reply(c, Message{Event: EventError, Error: "unknown event " + req.Event})
	}
}

func (h *Hub) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode reply failed", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
