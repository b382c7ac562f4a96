// Package command implements the router control channel: a JSON-RPC 2.0
// server on a Unix domain socket and the client the CLI uses to reach it.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"time"

	"firestige.xyz/hop/internal/arp"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/route"
	"firestige.xyz/hop/internal/router"
)

// Method names.
const (
	MethodRouterStats    = "router.stats"
	MethodRouteList      = "route.list"
	MethodRouteLookup    = "route.lookup"
	MethodARPNeighbors   = "arp.neighbors"
	MethodInterfaceList  = "interface.list"
	MethodConfigReload   = "config.reload"
	MethodDaemonStatus   = "daemon.status"
	MethodDaemonShutdown = "daemon.shutdown"
)

// Router is the read-only view of a running router the handler reports on.
type Router interface {
	Stats() router.StatsSnapshot
	Cache() arp.Cache
	Interfaces() link.Interfaces
}

// ConfigReloader is the interface for reloading global configuration.
type ConfigReloader interface {
	Reload() error
}

// CommandHandler handles control plane commands.
type CommandHandler struct {
	router         Router
	routes         *route.Table
	configReloader ConfigReloader
	shutdownFunc   func() // Called by daemon.shutdown to trigger graceful stop
	startTime      time.Time
}

// NewCommandHandler creates a new command handler. reloader may be nil.
func NewCommandHandler(r Router, routes *route.Table, reloader ConfigReloader) *CommandHandler {
	return &CommandHandler{
		router:         r,
		routes:         routes,
		configReloader: reloader,
		startTime:      time.Now(),
	}
}

// SetShutdownFunc sets the callback invoked by the daemon.shutdown command.
func (h *CommandHandler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     string          `json:"id"`
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
)

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	log.GetLogger().WithFields(map[string]interface{}{
		"method": cmd.Method,
		"id":     cmd.ID,
	}).Debug("handling command")

	switch cmd.Method {
	case MethodRouterStats:
		return h.handleRouterStats(ctx, cmd)
	case MethodRouteList:
		return h.handleRouteList(ctx, cmd)
	case MethodRouteLookup:
		return h.handleRouteLookup(ctx, cmd)
	case MethodARPNeighbors:
		return h.handleARPNeighbors(ctx, cmd)
	case MethodInterfaceList:
		return h.handleInterfaceList(ctx, cmd)
	case MethodConfigReload:
		return h.handleConfigReload(ctx, cmd)
	case MethodDaemonStatus:
		return h.handleDaemonStatus(ctx, cmd)
	case MethodDaemonShutdown:
		return h.handleDaemonShutdown(ctx, cmd)
	default:
		return errorResponse(cmd.ID, ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", cmd.Method))
	}
}

func errorResponse(id string, code int, msg string) Response {
	return Response{
		ID: id,
		Error: &ErrorInfo{
			Code:    code,
			Message: msg,
		},
	}
}

// RouterStats is the result of router.stats.
type RouterStats struct {
	router.StatsSnapshot
	Neighbors int `json:"neighbors"`
}

func (h *CommandHandler) handleRouterStats(_ context.Context, cmd Command) Response {
	if h.router == nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, "router not running")
	}
	return Response{
		ID: cmd.ID,
		Result: RouterStats{
			StatsSnapshot: h.router.Stats(),
			Neighbors:     h.router.Cache().Len(),
		},
	}
}

// RouteInfo is one routing table entry. NextHop is empty for on-link routes.
type RouteInfo struct {
	Prefix    string `json:"prefix"`
	NextHop   string `json:"next_hop,omitempty"`
	Interface string `json:"interface"`
}

func routeInfo(r route.Route) RouteInfo {
	info := RouteInfo{Prefix: r.Prefix.String(), Interface: r.Interface}
	if !r.OnLink() {
		info.NextHop = r.NextHop.String()
	}
	return info
}

// RouteListResult is the result of route.list.
type RouteListResult struct {
	Routes []RouteInfo `json:"routes"`
}

func (h *CommandHandler) handleRouteList(_ context.Context, cmd Command) Response {
	routes := h.routes.Routes()
	result := RouteListResult{Routes: make([]RouteInfo, 0, len(routes))}
	for _, r := range routes {
		result.Routes = append(result.Routes, routeInfo(r))
	}
	return Response{ID: cmd.ID, Result: result}
}

// RouteLookupParams represents parameters for route.lookup.
type RouteLookupParams struct {
	Destination string `json:"destination"`
}

// RouteLookupResult is the result of route.lookup. Route is nil when no
// entry matches.
type RouteLookupResult struct {
	Destination string     `json:"destination"`
	Route       *RouteInfo `json:"route,omitempty"`
}

func (h *CommandHandler) handleRouteLookup(_ context.Context, cmd Command) Response {
	var params RouteLookupParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errorResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	dst, err := netip.ParseAddr(params.Destination)
	if err != nil || !dst.Is4() {
		return errorResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid destination %q", params.Destination))
	}

	result := RouteLookupResult{Destination: dst.String()}
	if r, ok := h.routes.Lookup(dst); ok {
		info := routeInfo(r)
		result.Route = &info
	}
	return Response{ID: cmd.ID, Result: result}
}

// NeighborInfo is one resolved ARP cache entry.
type NeighborInfo struct {
	IP        string    `json:"ip"`
	MAC       string    `json:"mac"`
	Interface string    `json:"interface"`
	LearnedAt time.Time `json:"learned_at"`
}

// NeighborListResult is the result of arp.neighbors.
type NeighborListResult struct {
	Neighbors []NeighborInfo `json:"neighbors"`
}

func (h *CommandHandler) handleARPNeighbors(_ context.Context, cmd Command) Response {
	if h.router == nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, "router not running")
	}
	entries := h.router.Cache().Entries()
	result := NeighborListResult{Neighbors: make([]NeighborInfo, 0, len(entries))}
	for _, n := range entries {
		result.Neighbors = append(result.Neighbors, NeighborInfo{
			IP:        n.IP.String(),
			MAC:       n.MAC.String(),
			Interface: n.Interface,
			LearnedAt: n.LearnedAt,
		})
	}
	return Response{ID: cmd.ID, Result: result}
}

// InterfaceInfo describes one router port.
type InterfaceInfo struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	MAC   string `json:"mac"`
	IP    string `json:"ip"`
}

// InterfaceListResult is the result of interface.list.
type InterfaceListResult struct {
	Interfaces []InterfaceInfo `json:"interfaces"`
}

func (h *CommandHandler) handleInterfaceList(_ context.Context, cmd Command) Response {
	if h.router == nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, "router not running")
	}
	ifaces := h.router.Interfaces()
	result := InterfaceListResult{Interfaces: make([]InterfaceInfo, 0, len(ifaces))}
	for _, iface := range ifaces {
		result.Interfaces = append(result.Interfaces, InterfaceInfo{
			Name:  iface.Name,
			Index: iface.Index,
			MAC:   iface.MAC.String(),
			IP:    iface.IP.String(),
		})
	}
	return Response{ID: cmd.ID, Result: result}
}

func (h *CommandHandler) handleConfigReload(_ context.Context, cmd Command) Response {
	if h.configReloader == nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, "config reloader not configured")
	}
	if err := h.configReloader.Reload(); err != nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, fmt.Sprintf("reload failed: %v", err))
	}
	return Response{
		ID:     cmd.ID,
		Result: map[string]string{"status": "reloaded"},
	}
}

// DaemonStatus is the result of daemon.status.
type DaemonStatus struct {
	PID           int    `json:"pid"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Interfaces    int    `json:"interfaces"`
	Routes        int    `json:"routes"`
	Neighbors     int    `json:"neighbors"`
	Started       string `json:"started"`
}

func (h *CommandHandler) handleDaemonStatus(_ context.Context, cmd Command) Response {
	status := DaemonStatus{
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Routes:        h.routes.Len(),
		Started:       h.startTime.UTC().Format(time.RFC3339),
	}
	if h.router != nil {
		status.Interfaces = len(h.router.Interfaces())
		status.Neighbors = h.router.Cache().Len()
	}
	return Response{ID: cmd.ID, Result: status}
}

func (h *CommandHandler) handleDaemonShutdown(_ context.Context, cmd Command) Response {
	if h.shutdownFunc == nil {
		return errorResponse(cmd.ID, ErrCodeInternalError, "shutdown not supported")
	}

	log.GetLogger().Info("daemon shutdown requested via control socket")
	// Respond before the listener is torn down.
	go h.shutdownFunc()

	return Response{
		ID:     cmd.ID,
		Result: map[string]string{"status": "shutting_down"},
	}
}
