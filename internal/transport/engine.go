package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// EngineSession is a single JSON-RPC-over-websocket connection to the Qlik
// engine. The session's configured schema version is not sent when dialing
// or with calls. Suspension occurs at every round-trip; callers never share
// an EngineSession across goroutines.
type EngineSession struct {
	conn   *websocket.Conn
	nextID atomic.Int64
}

// OpenEngineSession dials the engine websocket with the session's
// configured auth material.
func (s *Session) OpenEngineSession(ctx context.Context) (*EngineSession, error) {
	dialer := websocket.Dialer{}
	if !s.cfg.Secure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if s.cfg.AuthMode == AuthCertificate {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate for engine session: %w", err)
		}
		if dialer.TLSClientConfig == nil {
			dialer.TLSClientConfig = &tls.Config{}
		}
		dialer.TLSClientConfig.Certificates = []tls.Certificate{cert}
	}

	header := make(map[string][]string)
	if s.cfg.AuthMode == AuthBearer {
		header["Authorization"] = []string{"Bearer " + s.cfg.BearerToken}
	}

	url := s.cfg.EngineBaseURL() + "/app/engineData"
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial engine websocket: %w", err)
	}
	return &EngineSession{conn: conn}, nil
}

// rpcRequest is the JSON-RPC envelope the engine expects.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Handle  int    `json:"handle"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Error  *rpcError       `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e rpcError) Error() string { return fmt.Sprintf("engine error %d: %s", e.Code, e.Message) }

// Call issues a single JSON-RPC method call and blocks for the matching
// response.
func (e *EngineSession) Call(ctx context.Context, handle int, method string, params any) (json.RawMessage, error) {
	id := e.nextID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Handle: handle, Params: params}

	if err := e.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write engine request: %w", err)
	}

	type result struct {
		resp rpcResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var resp rpcResponse
		err := e.conn.ReadJSON(&resp)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("read engine response: %w", r.err)
		}
		if r.resp.Error != nil {
			return nil, *r.resp.Error
		}
		return r.resp.Result, nil
	}
}

// Close closes the engine websocket and reports success/failure.
func (e *EngineSession) Close() error {
	return e.conn.Close()
}
