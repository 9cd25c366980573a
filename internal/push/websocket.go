package push

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// frame is the wire format of the websocket channel: control frames flow
// client→server, published messages flow server→client.
type frame struct {
	Action  string          `json:"action,omitempty"` // "subscribe" | "unsubscribe"
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebsocketSubscriber multiplexes topic subscriptions over one websocket
// connection. A single read loop dispatches incoming frames to the handler
// registered for their topic; frames for unknown topics are dropped.
type WebsocketSubscriber struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex // websocket writes must not interleave

	mu       sync.Mutex
	handlers map[string]Handler
	closed   bool
}

// NewWebsocketSubscriber dials the channel endpoint and starts the read loop.
func NewWebsocketSubscriber(wsURL string, logger *zap.Logger) (*WebsocketSubscriber, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing push channel: %w", err)
	}

	s := &WebsocketSubscriber{
		conn:     conn,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
	go s.readLoop()
	return s, nil
}

func (s *WebsocketSubscriber) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.Warn("push channel read failed", zap.Error(err))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("dropping unparseable push frame", zap.Error(err))
			continue
		}

		s.mu.Lock()
		h := s.handlers[f.Topic]
		s.mu.Unlock()

		if h != nil {
			h(f.Payload)
		}
	}
}

func (s *WebsocketSubscriber) send(action, topic string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(frame{Action: action, Topic: topic})
}

// Subscribe registers a handler for topic and tells the server to start
// publishing it. The returned subscription tolerates repeated Unsubscribe
// calls.
func (s *WebsocketSubscriber) Subscribe(topic string, h Handler) (Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("push channel is closed")
	}
	s.handlers[topic] = h
	s.mu.Unlock()

	if err := s.send("subscribe", topic); err != nil {
		s.mu.Lock()
		delete(s.handlers, topic)
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	return &wsSubscription{parent: s, topic: topic}, nil
}

func (s *WebsocketSubscriber) unsubscribe(topic string) {
	s.mu.Lock()
	delete(s.handlers, topic)
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	if err := s.send("unsubscribe", topic); err != nil {
		s.logger.Warn("unsubscribe failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Close tears down the connection. Pending subscriptions become inert.
func (s *WebsocketSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = make(map[string]Handler)
	s.mu.Unlock()

	return s.conn.Close()
}

type wsSubscription struct {
	once   sync.Once
	parent *WebsocketSubscriber
	topic  string
}

func (w *wsSubscription) Unsubscribe() {
	w.once.Do(func() {
		w.parent.unsubscribe(w.topic)
	})
}
