package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/service"
)

type clientEventKind int

const (
	clientOpened clientEventKind = iota
	clientBound
	clientClosed
)

type clientEvent struct {
	kind   clientEventKind
	client *Client
}

// Hub maintains the set of active clients and relays accepted strokes to
// them. There is exactly one shared canvas, so fanout is a single channel
// with an exclusion list of size one: the origin connection.
//
// All lifecycle events ride one channel so events for the same connection
// reach the hub in the order they happened: open before bind, bind before
// close. Separate channels would let a backlogged hub dequeue a bind ahead
// of its open and drop the registration.
type Hub struct {
	canvasCache cache.CanvasCache
	EventCh     chan clientEvent
	DeliverCh   chan service.FanoutEnvelope
	clients     map[*Client]struct{}
	bound       map[string]*Client // connection id -> bound client
}

func NewHub(canvasCache cache.CanvasCache) *Hub {
	return &Hub{
		canvasCache: canvasCache,
		EventCh:     make(chan clientEvent, 512),
		DeliverCh:   make(chan service.FanoutEnvelope, 1024),
		clients:     make(map[*Client]struct{}),
		bound:       make(map[string]*Client),
	}
}

func (h *Hub) Open(client *Client)  { h.EventCh <- clientEvent{clientOpened, client} }
func (h *Hub) Bind(client *Client)  { h.EventCh <- clientEvent{clientBound, client} }
func (h *Hub) Close(client *Client) { h.EventCh <- clientEvent{clientClosed, client} }

func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.EventCh:
			switch ev.kind {
			case clientOpened:
				h.clients[ev.client] = struct{}{}

			case clientBound:
				// Only track connections the hub still knows about
				if _, ok := h.clients[ev.client]; ok {
					h.bound[ev.client.connectionId] = ev.client
				}

			case clientClosed:
				delete(h.clients, ev.client)
				delete(h.bound, ev.client.connectionId)
			}

		case env := <-h.DeliverCh:
			for id, client := range h.bound {
				if id == env.Origin {
					continue
				}
				// Fire-and-forget: a slow or dying connection drops the
				// message rather than blocking delivery to everyone else.
				select {
				case client.Send <- env.Payload:
				default:
					log.Printf("Dropping fanout to connection %s: send buffer full", id)
				}
			}
		}
	}
}

// InitSubscriptions attaches the hub to the canvas pub/sub channel. Every
// server process runs one hub; strokes accepted anywhere reach the local
// clients through this subscription.
func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.canvasCache.Subscribe(shutdownCtx, service.CanvasChannel, func(message []byte) {
		var env service.FanoutEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("Failed to unmarshal fanout envelope: %v", err)
			return
		}
		h.DeliverCh <- env
	})
	if err != nil {
		log.Printf("WS hub failed to subscribe to %s: %v", service.CanvasChannel, err)
		return err
	}

	return nil
}
