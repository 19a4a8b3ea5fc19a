// Package metadata records who is calling: the client address and a parsed
// user agent. Public verification has no authenticated actor, so this is all
// its audit entries carry.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"attest/pkg/requestcontext"
)

// maxForwardedFor bounds how much of X-Forwarded-For is parsed.
const maxForwardedFor = 512

// Capture stores requestcontext.ClientMetadata on every request. Forwarded
// headers are honoured only when the peer is inside one of trusted.
func Capture(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			md := Parse(clientIP(r, trusted), r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(requestcontext.WithClientMetadata(r.Context(), md)))
		})
	}
}

// Parse builds ClientMetadata from an address and a User-Agent header.
func Parse(ip, userAgent string) requestcontext.ClientMetadata {
	md := requestcontext.ClientMetadata{IP: ip, UserAgent: userAgent}
	if userAgent == "" {
		return md
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		md.Browser = "bot"
	} else {
		name, _ := ua.Browser()
		md.Browser = strings.ToLower(strings.TrimSpace(name))
	}
	md.OS = strings.ToLower(strings.TrimSpace(ua.OS()))
	md.Mobile = ua.Mobile()
	return md
}

// clientIP walks X-Forwarded-For from the right, skipping hops that are
// themselves trusted proxies. Entries left of the first untrusted hop are
// client-controlled and ignored.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || len(xff) > maxForwardedFor {
		return peer.String()
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return peer.String()
		}
		hop = hop.Unmap()
		if !isTrusted(hop, trusted) {
			return hop.String()
		}
	}
	return peer.String()
}

func peerAddr(remote string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(remote); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(a netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
