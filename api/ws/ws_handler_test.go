package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	cachemocks "github.com/jinukim/inkverse/cache/mocks"
	"github.com/jinukim/inkverse/models"
	mqmocks "github.com/jinukim/inkverse/mq/mocks"
	"github.com/jinukim/inkverse/service"
	"github.com/jinukim/inkverse/store"
	storemocks "github.com/jinukim/inkverse/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupHandler(jwtSecret []byte) (*Handler, *storemocks.MockStore, *cachemocks.MockCache) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	svc := service.NewService(mockStore, mockCache, mockMQ, jwtSecret)
	hub := NewHub(mockCache)

	return NewHandler(svc, hub), mockStore, mockCache
}

func wsMessage(t *testing.T, msgType string, data any) []byte {
	dataBytes, err := json.Marshal(data)
	assert.NoError(t, err)
	msgBytes, err := json.Marshal(message{Type: msgType, Data: dataBytes})
	assert.NoError(t, err)
	return msgBytes
}

func decodeSent(t *testing.T, client *Client) (string, json.RawMessage) {
	select {
	case sent := <-client.Send:
		var msg message
		assert.NoError(t, json.Unmarshal(sent, &msg))
		return msg.Type, msg.Data
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for outbound message")
		return "", nil
	}
}

func TestHandleBind_SendsSnapshot(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	ledger := models.UserLedger{
		UserId:          "user1",
		Color:           "#ABCDEF",
		RemainingBudget: 1234,
		LastReset:       time.Now().UnixMilli(),
	}
	strokes := []models.Stroke{
		{Id: "018f0001", Points: []float64{0, 0, 1, 1}, Color: "#112233", UserId: "user2", CreatedAt: 1},
	}
	strokeBytes, _ := json.Marshal(strokes[0])

	mockStore.On("GetLedger", mock.Anything, "user1").Return(ledger, nil)
	mockCache.On("GetStrokes", mock.Anything).Return([][]byte{strokeBytes}, nil)
	mockCache.On("IsCanvasComplete", mock.Anything).Return(true, nil)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "bind", bindMessage{UserId: "user1"}))

	assert.Equal(t, Bound, client.state)
	assert.Equal(t, "user1", client.userId)
	assert.Equal(t, "#ABCDEF", client.color)

	msgType, data := decodeSent(t, client)
	assert.Equal(t, "snapshot", msgType)

	var snapshot snapshotData
	assert.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, strokes, snapshot.Strokes)
	assert.Equal(t, "#ABCDEF", snapshot.Color)
	assert.Equal(t, 1234.0, snapshot.RemainingBudget)
}

func TestHandleBind_IgnoredWhenTokenAuthConfigured(t *testing.T) {
	handler, mockStore, _ := setupHandler([]byte("secret"))
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "bind", bindMessage{UserId: "user1"}))

	assert.Equal(t, Unbound, client.state)
	assert.Empty(t, client.Send)
	mockStore.AssertNotCalled(t, "GetLedger", mock.Anything, mock.Anything)
}

func TestHandleBind_SecondBindIgnored(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	ledger := models.UserLedger{UserId: "user1", Color: "#ABCDEF", RemainingBudget: 1234, LastReset: time.Now().UnixMilli()}
	mockStore.On("GetLedger", mock.Anything, "user1").Return(ledger, nil).Once()
	mockCache.On("GetStrokes", mock.Anything).Return([][]byte{}, nil)
	mockCache.On("IsCanvasComplete", mock.Anything).Return(true, nil)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "bind", bindMessage{UserId: "user1"}))
	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "bind", bindMessage{UserId: "user2"}))

	assert.Equal(t, "user1", client.userId)
	mockStore.AssertNumberOfCalls(t, "GetLedger", 1)
}

func TestHandleBind_StoreFailureLeavesUnbound(t *testing.T) {
	handler, mockStore, _ := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	mockStore.On("GetLedger", mock.Anything, "user1").Return(models.UserLedger{}, assert.AnError)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "bind", bindMessage{UserId: "user1"}))

	assert.Equal(t, Unbound, client.state)
	assert.Empty(t, client.Send)
}

func TestHandleSubmitStroke_ColorComesFromLedger(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)
	client.state = Bound
	client.userId = "user1"
	client.color = "#ABCDEF"

	mockStore.On("DebitBudget", mock.Anything, "user1", mock.Anything).
		Return(models.UserLedger{UserId: "user1", Color: "#ABCDEF", RemainingBudget: 100}, nil)
	mockStore.On("InsertStroke", mock.Anything, mock.Anything).Return(nil)
	addStrokeDone := make(chan struct{})
	mockCache.On("AddStroke", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { close(addStrokeDone) }).Return(nil)
	mockCache.On("Publish", mock.Anything, service.CanvasChannel, mock.Anything).Return(nil)

	// The claimed color is advisory; the ledger color wins
	handler.HandleWsMessage(client, websocket.TextMessage,
		wsMessage(t, "submit_stroke", submitStrokeMessage{Points: []float64{0, 0, 3, 4}, Color: "#000000"}))

	persisted := mockStore.Calls[1].Arguments.Get(1).(models.Stroke)
	assert.Equal(t, "#ABCDEF", persisted.Color)

	msgType, data := decodeSent(t, client)
	assert.Equal(t, "stroke_accepted", msgType)

	var accepted strokeAcceptedData
	assert.NoError(t, json.Unmarshal(data, &accepted))
	assert.Equal(t, persisted.Id, accepted.StrokeId)
	assert.Equal(t, 100.0, accepted.RemainingBudget)
	assert.Equal(t, 100.0, client.remainingBudget)

	select {
	case <-addStrokeDone:
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for AddStroke")
	}
}

func TestHandleSubmitStroke_DroppedWhenUnbound(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	handler.HandleWsMessage(client, websocket.TextMessage,
		wsMessage(t, "submit_stroke", submitStrokeMessage{Points: []float64{0, 0, 3, 4}}))

	assert.Empty(t, client.Send)
	mockStore.AssertNotCalled(t, "DebitBudget", mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSubmitStroke_MalformedPointsDropped(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)
	client.state = Bound
	client.userId = "user1"
	client.color = "#ABCDEF"

	// A single point is not a stroke
	handler.HandleWsMessage(client, websocket.TextMessage,
		wsMessage(t, "submit_stroke", submitStrokeMessage{Points: []float64{1, 2}}))

	assert.Empty(t, client.Send)
	mockStore.AssertNotCalled(t, "DebitBudget", mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "InsertStroke", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSubmitStroke_ExhaustedBudgetSilent(t *testing.T) {
	handler, mockStore, mockCache := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)
	client.state = Bound
	client.userId = "user1"
	client.color = "#ABCDEF"
	client.remainingBudget = 2.5

	mockStore.On("DebitBudget", mock.Anything, "user1", mock.Anything).
		Return(models.UserLedger{}, store.ErrConditionFailed)
	mockStore.On("GetLedger", mock.Anything, "user1").
		Return(models.UserLedger{UserId: "user1", Color: "#ABCDEF", RemainingBudget: 2.5}, nil)

	handler.HandleWsMessage(client, websocket.TextMessage,
		wsMessage(t, "submit_stroke", submitStrokeMessage{Points: []float64{0, 0, 3, 4}}))

	assert.Empty(t, client.Send)
	assert.Equal(t, 2.5, client.remainingBudget)
	mockStore.AssertNotCalled(t, "InsertStroke", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWsMessage_UnknownTypeIgnored(t *testing.T) {
	handler, mockStore, _ := setupHandler(nil)
	client := NewClient(handler.Hub, nil, "conn-a", handler.HandleWsMessage)

	handler.HandleWsMessage(client, websocket.TextMessage, []byte(`{"type":"nonsense","data":{}}`))
	handler.HandleWsMessage(client, websocket.TextMessage, []byte(`not json`))

	assert.Empty(t, client.Send)
	mockStore.AssertNotCalled(t, "GetLedger", mock.Anything, mock.Anything)
}
