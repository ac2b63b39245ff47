package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jinukim/inkverse/service"
	"github.com/stretchr/testify/assert"
)

// Lifecycle events and deliveries ride separate channels, so a short pause
// lets queued lifecycle events settle before a delivery is enqueued.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

func recvOrTimeout(t *testing.T, ch chan []byte) []byte {
	select {
	case msg := <-ch:
		return msg
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for fanout delivery")
		return nil
	}
}

func TestHubDeliverSkipsOrigin(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	origin := NewClient(hub, nil, "conn-origin", nil)
	peerA := NewClient(hub, nil, "conn-a", nil)
	peerB := NewClient(hub, nil, "conn-b", nil)

	for _, c := range []*Client{origin, peerA, peerB} {
		hub.Open(c)
		hub.Bind(c)
	}
	settle()

	payload, _ := json.Marshal(map[string]string{"type": "stroke_added"})
	hub.DeliverCh <- service.FanoutEnvelope{Origin: "conn-origin", Payload: payload}

	assert.JSONEq(t, string(payload), string(recvOrTimeout(t, peerA.Send)))
	assert.JSONEq(t, string(payload), string(recvOrTimeout(t, peerB.Send)))
	assert.Empty(t, origin.Send)
}

func TestHubBacklogKeepsRegistration(t *testing.T) {
	hub := NewHub(nil)

	client := NewClient(hub, nil, "conn-a", nil)
	peer := NewClient(hub, nil, "conn-b", nil)

	// Queue both lifecycles in full before the hub processes anything, as
	// happens when the hub goroutine is busy with a large fanout. The open
	// must still land before the bind for each connection.
	hub.Open(client)
	hub.Bind(client)
	hub.Open(peer)
	hub.Bind(peer)

	go hub.Run()
	settle()

	hub.DeliverCh <- service.FanoutEnvelope{Origin: "conn-b", Payload: []byte(`{}`)}
	recvOrTimeout(t, client.Send)
}

func TestHubDeliverSkipsUnboundClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	bound := NewClient(hub, nil, "conn-bound", nil)
	unbound := NewClient(hub, nil, "conn-unbound", nil)

	hub.Open(bound)
	hub.Open(unbound)
	hub.Bind(bound)
	settle()

	hub.DeliverCh <- service.FanoutEnvelope{Origin: "conn-elsewhere", Payload: []byte(`{}`)}

	recvOrTimeout(t, bound.Send)
	assert.Empty(t, unbound.Send)
}

func TestHubCloseStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := NewClient(hub, nil, "conn-a", nil)
	hub.Open(client)
	hub.Bind(client)
	hub.Close(client)
	settle()

	hub.DeliverCh <- service.FanoutEnvelope{Origin: "conn-elsewhere", Payload: []byte(`{}`)}
	settle()

	assert.Empty(t, client.Send)
}

func TestHubIgnoresBindAfterClose(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := NewClient(hub, nil, "conn-a", nil)
	hub.Open(client)
	hub.Close(client)
	// A bind for a connection the hub no longer tracks is discarded
	hub.Bind(client)
	settle()

	hub.DeliverCh <- service.FanoutEnvelope{Origin: "conn-elsewhere", Payload: []byte(`{}`)}
	settle()

	assert.Empty(t, client.Send)
}
