package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver finds the address a request came from. Forwarding headers
// are honoured only when the direct peer is a trusted proxy, so clients
// cannot pick their own rate limit key.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses proxies given as IPs or CIDR ranges. With no
// proxies every request is keyed by its peer address.
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, raw := range proxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			res.trusted = append(res.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

// ClientIP returns the peer address, or the nearest untrusted hop of
// X-Forwarded-For (then X-Real-IP) when the peer is a trusted proxy.
// A nil resolver trusts no proxy.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !c.isTrusted(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !c.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	if c == nil || len(c.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
