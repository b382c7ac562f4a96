package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends a command and waits for response. The result is left as raw
// JSON in Response.Result; see CallInto for typed results.
func (c *UDSClient) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed without response")
	}

	var raw struct {
		ID     interface{}     `json:"id"`
		Result json.RawMessage `json:"result,omitempty"`
		Error  *ErrorInfo      `json:"error,omitempty"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	respID := fmt.Sprintf("%v", raw.ID)
	if respID != reqID {
		return nil, fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, respID)
	}

	return &Response{
		ID:     respID,
		Result: raw.Result,
		Error:  raw.Error,
	}, nil
}

// CallInto calls method and decodes the result into out. An RPC error is
// returned as *ErrorInfo.
func (c *UDSClient) CallInto(ctx context.Context, method string, params, out interface{}) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	data, _ := resp.Result.(json.RawMessage)
	if len(data) == 0 {
		return fmt.Errorf("%s: empty result", method)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// RouterStats fetches the router counters.
func (c *UDSClient) RouterStats(ctx context.Context) (RouterStats, error) {
	var out RouterStats
	err := c.CallInto(ctx, MethodRouterStats, nil, &out)
	return out, err
}

// Routes fetches the routing table.
func (c *UDSClient) Routes(ctx context.Context) ([]RouteInfo, error) {
	var out RouteListResult
	err := c.CallInto(ctx, MethodRouteList, nil, &out)
	return out.Routes, err
}

// LookupRoute asks the daemon which route serves dst.
func (c *UDSClient) LookupRoute(ctx context.Context, dst string) (RouteLookupResult, error) {
	var out RouteLookupResult
	err := c.CallInto(ctx, MethodRouteLookup, RouteLookupParams{Destination: dst}, &out)
	return out, err
}

// Neighbors fetches the ARP cache.
func (c *UDSClient) Neighbors(ctx context.Context) ([]NeighborInfo, error) {
	var out NeighborListResult
	err := c.CallInto(ctx, MethodARPNeighbors, nil, &out)
	return out.Neighbors, err
}

// Interfaces fetches the router ports.
func (c *UDSClient) Interfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var out InterfaceListResult
	err := c.CallInto(ctx, MethodInterfaceList, nil, &out)
	return out.Interfaces, err
}

// Status fetches daemon status.
func (c *UDSClient) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.CallInto(ctx, MethodDaemonStatus, nil, &out)
	return out, err
}

// ConfigReload asks the daemon to re-read its configuration.
func (c *UDSClient) ConfigReload(ctx context.Context) error {
	return c.CallInto(ctx, MethodConfigReload, nil, nil)
}

// Shutdown asks the daemon to stop.
func (c *UDSClient) Shutdown(ctx context.Context) error {
	return c.CallInto(ctx, MethodDaemonShutdown, nil, nil)
}

// Ping checks that the daemon answers.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}
