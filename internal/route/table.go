// Package route loads the static routing table and answers
// longest-prefix-match queries against it.
package route

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"sort"
	"strings"

	"firestige.xyz/hop/internal/core"
)

// Route is a single table entry. A zero NextHop means the destination is
// on the egress link.
type Route struct {
	Prefix    netip.Prefix
	NextHop   netip.Addr
	Interface string
}

// OnLink reports whether the route has no next hop.
func (r Route) OnLink() bool {
	return !r.NextHop.IsValid()
}

func (r Route) String() string {
	hop := "-"
	if !r.OnLink() {
		hop = r.NextHop.String()
	}
	return fmt.Sprintf("%s %s %s", r.Prefix, hop, r.Interface)
}

// Table is an immutable set of routes ordered by decreasing prefix length.
type Table struct {
	routes []Route
}

// NewTable builds a table from routes. Prefixes are masked; on duplicates
// the later route wins.
func NewTable(routes ...Route) *Table {
	byPrefix := make(map[netip.Prefix]int, len(routes))
	t := &Table{routes: make([]Route, 0, len(routes))}
	for _, r := range routes {
		r.Prefix = r.Prefix.Masked()
		if i, ok := byPrefix[r.Prefix]; ok {
			t.routes[i] = r
			continue
		}
		byPrefix[r.Prefix] = len(t.routes)
		t.routes = append(t.routes, r)
	}
	sort.SliceStable(t.routes, func(i, j int) bool {
		return t.routes[i].Prefix.Bits() > t.routes[j].Prefix.Bits()
	})
	return t
}

// Lookup returns the longest-prefix route covering dst.
func (t *Table) Lookup(dst netip.Addr) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	dst = dst.Unmap()
	for _, r := range t.routes {
		if r.Prefix.Contains(dst) {
			return r, true
		}
	}
	return Route{}, false
}

// GetRoute returns the egress interface name for dst.
func (t *Table) GetRoute(dst netip.Addr) (string, bool) {
	r, ok := t.Lookup(dst)
	if !ok {
		return "", false
	}
	return r.Interface, true
}

// GetHopDevice returns the next hop for dst, absent for on-link routes.
func (t *Table) GetHopDevice(dst netip.Addr) (netip.Addr, bool) {
	r, ok := t.Lookup(dst)
	if !ok || r.OnLink() {
		return netip.Addr{}, false
	}
	return r.NextHop, true
}

// Routes returns a copy of the entries in match order.
func (t *Table) Routes() []Route {
	if t == nil {
		return nil
	}
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Load reads a routing table file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open routing table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads one route per line:
//
//	<prefix> <next-hop|-> <interface>
//
// Blank lines and text after '#' are ignored. A bare address is a /32.
func Parse(r io.Reader) (*Table, error) {
	var routes []Route
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		route, err := parseLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		routes = append(routes, route)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}
	return NewTable(routes...), nil
}

func parseLine(fields []string) (Route, error) {
	if len(fields) != 3 {
		return Route{}, fmt.Errorf("%w: want 3 fields, got %d", core.ErrRouteSyntax, len(fields))
	}

	prefix, err := parsePrefix(fields[0])
	if err != nil {
		return Route{}, err
	}

	var hop netip.Addr
	if fields[1] != "-" {
		hop, err = netip.ParseAddr(fields[1])
		if err != nil || !hop.Is4() {
			return Route{}, fmt.Errorf("%w: invalid next hop %q", core.ErrRouteSyntax, fields[1])
		}
	}

	return Route{Prefix: prefix, NextHop: hop, Interface: fields[2]}, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil || !addr.Is4() {
			return netip.Prefix{}, fmt.Errorf("%w: invalid destination %q", core.ErrRouteSyntax, s)
		}
		return netip.PrefixFrom(addr, 32), nil
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil || !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: invalid destination %q", core.ErrRouteSyntax, s)
	}
	return prefix, nil
}
