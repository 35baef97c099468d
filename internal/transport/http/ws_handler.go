package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option int `json:"option"`
}

type answerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and runs one timed attempt over the socket.
// The client drives it with select/confirm/finish/retry messages and receives
// every state change as a "state" message, then one "finished" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	source, err := parseSource(r.URL.Query().Get("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" && source == domain.SourceStore {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	who := caller(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c, startErr := h.service.StartAttempt(r.Context(), who, source, quizID)
	defer func() {
		if err := h.service.EndAttempt(who, c.ID(), c.Key()); err != nil {
			// never registered: the start failed and was not retried successfully
			c.Close()
		}
	}()

	updates, cancel := c.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		finished := false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: snap}}
				if snap.Outcome != nil && !finished {
					finished = true
					msgs = append(msgs, outboundMessage[any]{Type: "finished", Payload: snap.Outcome})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					case <-writerDone:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if startErr != nil {
		push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: startErr.Error()}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(r, c, inbound, push); err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, c *app.Controller, inbound inboundMessage, push func(outboundMessage[any])) error {
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return &domain.ValidationError{Question: -1, Field: "payload", Reason: "invalid select payload"}
		}
		return c.Select(payload.Option)
	case "confirm":
		index := c.Snapshot().CurrentIndex
		correct, err := c.Confirm()
		if err != nil {
			return err
		}
		push(outboundMessage[any]{Type: "answerResult", Payload: answerResult{QuestionIndex: index, Correct: correct}})
		return nil
	case "finish":
		_, err := c.Finish(r.Context())
		return err
	case "retry":
		return h.service.RetryAttempt(r.Context(), c)
	default:
		return &domain.ValidationError{Question: -1, Field: "type", Reason: "unsupported message type"}
	}
}
