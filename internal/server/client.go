package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/engine"
	"sandbox-server/internal/network"
	"sandbox-server/pkg/api"
	"sandbox-server/pkg/logger"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между WebSocket и Simulation.
// Пока клиент подключен, его сущность выведена из-под скриптового
// решателя: запросы идут только через этот канал.
type Client struct {
	Sim  *engine.Simulation
	Hub  *network.Broadcaster
	Conn *websocket.Conn
	Send chan api.ServerResponse

	EntityID     domain.EntityID
	prevProvider string
}

func NewClient(sim *engine.Simulation, hub *network.Broadcaster, conn *websocket.Conn) *Client {
	return &Client{
		Sim:  sim,
		Hub:  hub,
		Conn: conn,
		Send: make(chan api.ServerResponse, 256),
	}
}

// readPump читает команды клиента
func (c *Client) readPump() {
	defer func() {
		if c.EntityID != "" {
			c.Hub.Unregister(c.EntityID)
			c.Sim.DetachExternalControl(c.EntityID, c.prevProvider)
			logger.Log.WithField("entity_id", c.EntityID).Info("Client disconnected")
		}
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE (LOGIN)
	var loginCmd api.ClientCommand
	if err := c.Conn.ReadJSON(&loginCmd); err != nil {
		logger.Log.Warn("Handshake failed")
		return
	}
	if loginCmd.Action != "LOGIN" || loginCmd.Token == "" {
		c.writeDirect(api.ServerResponse{Type: api.ResponseError, Error: "expected LOGIN with token"})
		return
	}

	entityID := domain.EntityID(loginCmd.Token)
	prev, ok := c.Sim.AttachExternalControl(entityID)
	if !ok {
		c.writeDirect(api.ServerResponse{Type: api.ResponseError, Error: "entity is not controllable: " + loginCmd.Token})
		return
	}
	c.EntityID = entityID
	c.prevProvider = prev

	logger.Log.WithFields(logrus.Fields{
		"entity_id": c.EntityID,
	}).Info("Client logged in")

	// 2. ПОДПИСКА НА ОБНОВЛЕНИЯ
	updates := c.Hub.Register(c.EntityID)
	go func() {
		for msg := range updates {
			c.Send <- msg
		}
		close(c.Send)
	}()

	// Первый кадр: наблюдение на момент подключения
	obs := c.Sim.Observation(c.EntityID)
	c.Hub.SendTo(c.EntityID, api.ServerResponse{
		Type:        api.ResponseInit,
		Tick:        obs.Tick,
		MyEntityID:  string(c.EntityID),
		Observation: &obs,
	})

	// 3. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("WS Error: %v", err)
			}
			break
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd api.ClientCommand) {
	switch cmd.Action {
	case "ACT":
		var p api.ActPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			c.Hub.SendTo(c.EntityID, api.ServerResponse{Type: api.ResponseError, Error: "malformed ACT payload"})
			return
		}
		if err := p.Validate(); err != nil {
			c.Hub.SendTo(c.EntityID, api.ServerResponse{Type: api.ResponseError, Error: err.Error()})
			return
		}

		outcome := c.Sim.SubmitRequest(c.EntityID, domain.Request{
			Verb:       p.Verb,
			TargetID:   domain.EntityID(p.TargetID),
			Parameters: p.Parameters,
		})
		obs := c.Sim.Observation(c.EntityID)
		c.Hub.SendTo(c.EntityID, api.ServerResponse{
			Type:        api.ResponseOutcome,
			Tick:        obs.Tick,
			MyEntityID:  string(c.EntityID),
			Outcome:     &outcome,
			Observation: &obs,
		})

	case "OBSERVE":
		obs := c.Sim.Observation(c.EntityID)
		c.Hub.SendTo(c.EntityID, api.ServerResponse{
			Type:        api.ResponseObservation,
			Tick:        obs.Tick,
			MyEntityID:  string(c.EntityID),
			Observation: &obs,
		})

	default:
		c.Hub.SendTo(c.EntityID, api.ServerResponse{Type: api.ResponseError, Error: "unknown action: " + cmd.Action})
	}
}

// writeDirect - ответ до регистрации в хабе (ошибки логина)
func (c *Client) writeDirect(msg api.ServerResponse) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
		_ = c.Conn.WriteJSON(msg)
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
