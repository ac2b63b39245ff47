package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/jinukim/inkverse/models"
	"github.com/jinukim/inkverse/service"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if requiredOrigin == "" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{"inkverse-v1"},
	}
}

// ServeWS handles websocket requests from the peer. When token auth is
// configured, an externally issued JWT may ride the subprotocol header and
// pre-binds the connection; otherwise the connection starts Unbound and
// waits for a bind message.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	var token string
	protocols := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	if len(protocols) == 2 {
		token = strings.TrimSpace(protocols[1])
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	var tokenUserId string
	if token != "" {
		// Must upgrade the connection first to be able to send a custom
		// close message
		tokenUserId, err = h.Service.AuthenticateToken(token)
		if err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
			)
			conn.Close()
			return
		}
	}

	connectionId, err := uuid.NewV4()
	if err != nil {
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, connectionId.String(), h.HandleWsMessage)
	h.Hub.Open(client)

	// Pre-bind before the pumps start so an early submit can never observe a
	// half-bound connection
	if tokenUserId != "" {
		h.bindClient(client, tokenUserId)
	}

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type bindMessage struct {
	UserId string `json:"userId"`
}

type submitStrokeMessage struct {
	Points []float64 `json:"points"`
	// Advisory only; the persisted color always comes from the ledger
	Color string `json:"color"`
}

type snapshotData struct {
	Strokes         []models.Stroke `json:"strokes"`
	Color           string          `json:"color"`
	RemainingBudget float64         `json:"remainingBudget"`
}

type strokeAcceptedData struct {
	StrokeId        string  `json:"strokeId"`
	RemainingBudget float64 `json:"remainingBudget"`
}

type responseMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Invalid JSON: %v", err)
		return
	}

	switch msg.Type {
	case "bind":
		var bindMsg bindMessage
		if err := json.Unmarshal(msg.Data, &bindMsg); err != nil {
			log.Printf("Invalid bind data: %v", err)
			return
		}
		h.handleBind(client, bindMsg)

	case "submit_stroke":
		var submitMsg submitStrokeMessage
		if err := json.Unmarshal(msg.Data, &submitMsg); err != nil {
			log.Printf("Invalid submit_stroke data: %v", err)
			return
		}
		h.handleSubmitStroke(client, submitMsg)

	default:
		log.Printf("Unknown message type: %v", msg.Type)
	}
}

func (h *Handler) handleBind(client *Client, bindMsg bindMessage) {
	// Bind happens at most once per connection
	if client.state != Unbound {
		return
	}
	if bindMsg.UserId == "" {
		return
	}

	// When token auth is configured, identity only enters through the
	// verified handshake token, never a bare bind message.
	if len(h.Service.JWTSecret) != 0 {
		log.Printf("Ignoring bind by id on connection %s: token auth is configured", client.connectionId)
		return
	}

	h.bindClient(client, bindMsg.UserId)
}

// bindClient resolves the user's ledger, transitions the connection to
// Bound and sends the snapshot. On store failure the connection stays in
// its prior state and receives nothing; the client is expected to retry.
func (h *Handler) bindClient(client *Client, userId string) {
	ctx := context.Background()

	ledger, err := h.Service.ResolveUser(ctx, userId)
	if err != nil {
		log.Printf("ResolveUser failed for %s: %v", userId, err)
		return
	}

	strokes, err := h.Service.LoadCanvas(ctx)
	if err != nil {
		log.Printf("LoadCanvas failed: %v", err)
		return
	}

	client.userId = ledger.UserId
	client.color = ledger.Color
	client.remainingBudget = ledger.RemainingBudget
	client.state = Bound
	h.Hub.Bind(client)

	resp := responseMessage{
		Type: "snapshot",
		Data: snapshotData{
			Strokes:         strokes,
			Color:           ledger.Color,
			RemainingBudget: ledger.RemainingBudget,
		},
	}
	h.send(client, resp)
}

func (h *Handler) handleSubmitStroke(client *Client, submitMsg submitStrokeMessage) {
	// No identity to charge or attribute yet; drop silently
	if client.state != Bound {
		return
	}

	stroke, debit, err := h.Service.SubmitStroke(context.Background(), service.SubmitParams{
		UserId:             client.userId,
		Color:              client.color,
		Points:             submitMsg.Points,
		OriginConnectionId: client.connectionId,
	})
	if err != nil {
		// Malformed input and transient store failures alike are local to
		// this submission; no error reply is owed
		log.Printf("SubmitStroke failed for user %s: %v", client.userId, err)
		return
	}

	// Budget exhaustion is a normal outcome, not an error; the stroke is
	// silently dropped and the cached budget keeps its last known value
	if !debit.Accepted {
		return
	}

	client.remainingBudget = debit.NewRemaining

	resp := responseMessage{
		Type: "stroke_accepted",
		Data: strokeAcceptedData{
			StrokeId:        stroke.Id,
			RemainingBudget: debit.NewRemaining,
		},
	}
	h.send(client, resp)
}

func (h *Handler) send(client *Client, resp responseMessage) {
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshaling response JSON: %v", err)
		return
	}
	client.Send <- respBytes
}
