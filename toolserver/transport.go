package toolserver

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/metoro-io/mcp-golang/transport"
)

// Transport is an in-process MCP transport. Requests are delivered with
// HandleMessage, which blocks until the server sends the matching response.
// There is no wire; the tool server and its caller live in the same process.
type Transport struct {
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	closeHandler   func()
	mu             sync.RWMutex
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	requestCounter int64
}

func NewTransport() *Transport {
	return &Transport{
		responseMap: make(map[int64]chan *transport.BaseJsonRpcMessage),
	}
}

// Start does nothing in the stateless in-process transport.
func (t *Transport) Start(ctx context.Context) error {
	return nil
}

// Close closes the connection.
func (t *Transport) Close() error {
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

// SetErrorHandler sets the callback for when an error occurs.
// The in-process transport has no out-of-band errors to report.
func (t *Transport) SetErrorHandler(handler func(error)) {
}

// SetCloseHandler sets the callback for when the connection is closed for any reason.
func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetMessageHandler sets the callback for when a message (request, notification or response) is received over the connection.
func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// Send routes a JSON-RPC response back to the HandleMessage call waiting on it.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	key := int64(message.JsonRpcResponse.Id)
	t.mu.RLock()
	responseChannel := t.responseMap[key]
	t.mu.RUnlock()
	if responseChannel == nil {
		return errors.Errorf("no response channel found for key: %d", key)
	}
	responseChannel <- message
	return nil
}

// HandleMessage delivers a raw JSON-RPC request to the server and blocks
// until the response arrives. Notifications return an empty response
// immediately.
func (t *Transport) HandleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	key := atomic.AddInt64(&t.requestCounter, 1)
	ch := make(chan *transport.BaseJsonRpcMessage, 1)
	t.mu.Lock()
	t.responseMap[key] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.responseMap, key)
		t.mu.Unlock()
	}()

	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()
	if handler == nil {
		return nil, errors.New("transport is not serving")
	}

	var request transport.BaseJSONRPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		var notification transport.BaseJSONRPCNotification
		if err := json.Unmarshal(body, &notification); err != nil {
			return nil, errors.WithMessage(err, "failed to parse message")
		}
		handler(ctx, transport.NewBaseMessageNotification(&notification))
		return &transport.BaseJsonRpcMessage{
			Type: transport.BaseMessageTypeJSONRPCResponseType,
		}, nil
	}

	// The caller's request ID is restored on the response so concurrent
	// requests multiplex over one transport.
	callerID := request.Id
	request.Id = transport.RequestId(key)
	handler(ctx, transport.NewBaseMessageRequest(&request))

	select {
	case response := <-ch:
		response.JsonRpcResponse.Id = callerID
		return response, nil
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}
