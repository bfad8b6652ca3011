package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"
)

const (
	frameTypeSubscribe  = "notify.subscribe"
	frameTypeSubscribed = "notify.subscribed"
	frameTypeEvent      = "notify.event"
	frameTypeError      = "notify.error"

	maxDecodeErrorsPerConn = 5
	maxFramePayloadBytes   = 16 * 1024
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	ActorID string `json:"actor_id"`
}

type subscribedPayload struct {
	ActorID string `json:"actor_id"`
}

type eventEnvelope struct {
	Event Event `json:"event"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

// Authorizer resolves a bearer token to an actor ID for websocket
// subscriptions.
type Authorizer interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// NewHandler creates notification routes without websocket identity checks.
// Subscriptions trust the actor_id in the subscribe frame, which is only
// acceptable for tests and offline paths.
func NewHandler(registry *Registry) http.Handler {
	return newHandler(registry, nil)
}

// NewHandlerWithAuthorizer creates notification routes with enforced
// websocket identity checks: the subscribe frame must carry a token that
// resolves to the claimed actor.
func NewHandlerWithAuthorizer(registry *Registry, authorizer Authorizer) http.Handler {
	return newHandler(registry, authorizer)
}

func newHandler(registry *Registry, authorizer Authorizer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, registry, authorizer)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleWSConn(conn *websocket.Conn, registry *Registry, authorizer Authorizer) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	p := newPeer(json.NewEncoder(conn), conn)

	var actorID string
	defer func() {
		if actorID != "" {
			registry.unregister(actorID, p)
		}
	}()

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(p, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(p, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		switch frame.Type {
		case frameTypeSubscribe:
			actorID = handleSubscribeFrame(conn, registry, authorizer, p, actorID, frame)
		default:
			_ = writeWSError(p, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func handleSubscribeFrame(conn *websocket.Conn, registry *Registry, authorizer Authorizer, p *peer, currentActorID string, frame wsFrame) string {
	var payload subscribePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(p, frame.RequestID, "INVALID_ARGUMENT", "invalid subscribe payload")
		return currentActorID
	}

	actorID := strings.TrimSpace(payload.ActorID)
	if actorID == "" {
		_ = writeWSError(p, frame.RequestID, "INVALID_ARGUMENT", "actor_id is required")
		return currentActorID
	}

	if authorizer != nil {
		token := bearerToken(conn)
		if token == "" {
			_ = writeWSError(p, frame.RequestID, "UNAUTHENTICATED", "authentication required")
			return currentActorID
		}
		resolved, err := authorizer.Authenticate(requestContext(conn), token)
		if err != nil || strings.TrimSpace(resolved) == "" {
			if err != nil {
				log.Printf("notify: websocket auth failed actor=%q err=%v", actorID, err)
			}
			_ = writeWSError(p, frame.RequestID, "UNAUTHENTICATED", "authentication required")
			return currentActorID
		}
		if strings.TrimSpace(resolved) != actorID {
			_ = writeWSError(p, frame.RequestID, "FORBIDDEN", "token does not match actor")
			return currentActorID
		}
	}

	if currentActorID != "" && currentActorID != actorID {
		registry.unregister(currentActorID, p)
	}
	registry.register(actorID, p)

	_ = p.writeFrame(wsFrame{
		Type:      frameTypeSubscribed,
		RequestID: frame.RequestID,
		Payload:   mustJSON(subscribedPayload{ActorID: actorID}),
	})
	return actorID
}

func bearerToken(conn *websocket.Conn) string {
	request := conn.Request()
	if request == nil {
		return ""
	}
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func requestContext(conn *websocket.Conn) context.Context {
	if request := conn.Request(); request != nil {
		return request.Context()
	}
	return context.Background()
}

func writeWSError(p *peer, requestID string, code string, message string) error {
	return p.writeFrame(wsFrame{
		Type:      frameTypeError,
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{Code: code, Message: message},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("notify: failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
