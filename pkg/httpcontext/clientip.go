package httpcontext

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/valyala/fasthttp"
)

// TrustedProxies lists the peers allowed to report the client address through
// X-Forwarded-For. A nil *TrustedProxies trusts nobody.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies accepts bare IPs and CIDR ranges.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	t := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			t.prefixes = append(t.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		t.prefixes = append(t.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return t, nil
}

func (t *TrustedProxies) trusts(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	for _, prefix := range t.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the socket peer address. When the peer is a trusted proxy,
// X-Forwarded-For is walked from the right and the first untrusted hop wins.
func (t *TrustedProxies) ClientIP(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return ""
	}
	peer := socketAddr(ctx)
	if !peer.IsValid() {
		return ""
	}
	if !t.trusts(peer) {
		return peer.String()
	}

	hops := strings.Split(string(ctx.Request.Header.Peek("X-Forwarded-For")), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap()
		if !t.trusts(client) {
			break
		}
	}
	return client.String()
}

// ClientIP returns the socket peer address of ctx, ignoring forwarding headers.
func ClientIP(ctx *fasthttp.RequestCtx) string {
	var none *TrustedProxies
	return none.ClientIP(ctx)
}

func socketAddr(ctx *fasthttp.RequestCtx) netip.Addr {
	ip := ctx.RemoteIP()
	if ip == nil || ip.IsUnspecified() {
		return netip.Addr{}
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
