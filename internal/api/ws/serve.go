package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

const maxPublishBody = 1 << 20

// ServeWS upgrades the request to a board socket. The connection belongs to
// no room until the client sends join-board; closing it drops its membership.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := newSocket(uuid.NewString(), conn, h.opts.SendQueue)
	h.Register(s)
	defer h.Drop(s)

	go s.writeLoop(ctx, h.opts.PingInterval)

	for {
		typ, msg, readErr := conn.Read(ctx)
		if readErr != nil {
			if websocket.CloseStatus(readErr) == -1 && !errors.Is(readErr, context.Canceled) {
				log.Debug().Err(readErr).Str("conn_id", s.ID()).Msg("websocket read")
			}
			s.Close("connection closed")
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.handleFrame(s, msg)
	}
}

// ServePublish handles POST /broadcast from the system of record. Delivery
// failures to individual sockets are never reported to the caller.
func (h *Hub) ServePublish(w http.ResponseWriter, r *http.Request) {
	var req domain.PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.publishRequest(&req)
	w.WriteHeader(http.StatusNoContent)
}

// Consume publishes every valid request read from messages until the channel
// closes or ctx ends. Invalid messages are logged and dropped.
func (h *Hub) Consume(ctx context.Context, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var req domain.PublishRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				log.Warn().Err(err).Msg("hub: ingress: invalid message")
				continue
			}
			if err := req.Validate(); err != nil {
				log.Warn().Err(err).Msg("hub: ingress: incomplete message")
				continue
			}
			h.publishRequest(&req)
		}
	}
}

func (h *Hub) publishRequest(req *domain.PublishRequest) {
	target := req.Room()
	res := h.Publish(target, req.Event, req.Data)
	log.Debug().
		Str("room", target.String()).
		Str("event", req.Event).
		Int("delivered", res.Delivered).
		Int("dropped", res.Dropped).
		Msg("hub: publish")
}

// ServeRooms reports member counts per room.
func (h *Hub) ServeRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Snapshot())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
