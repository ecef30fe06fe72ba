package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"tokflow/internal/protocol"
)

// CookieBroker injects cookies into the driven browser.
type CookieBroker interface {
	SetCookie(ctx context.Context, c protocol.Cookie) error
}

// devtoolsCookieBroker writes cookies over the DevTools protocol. The
// browser tab context is captured at construction; cookies are
// browser-wide regardless of which tab sets them.
type devtoolsCookieBroker struct {
	browserCtx context.Context
}

func NewDevtoolsCookieBroker(browserCtx context.Context) CookieBroker {
	return devtoolsCookieBroker{browserCtx: browserCtx}
}

func (b devtoolsCookieBroker) SetCookie(_ context.Context, c protocol.Cookie) error {
	return chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := network.SetCookie(c.Name, c.Value)
		if c.Domain != "" {
			p = p.WithDomain(c.Domain)
		}
		if c.Path != "" {
			p = p.WithPath(c.Path)
		}
		if c.Secure != nil {
			p = p.WithSecure(*c.Secure)
		}
		if c.HTTPOnly {
			p = p.WithHTTPOnly(true)
		}
		switch strings.ToLower(c.SameSite) {
		case "lax":
			p = p.WithSameSite(network.CookieSameSiteLax)
		case "strict":
			p = p.WithSameSite(network.CookieSameSiteStrict)
		case "none", "no_restriction":
			p = p.WithSameSite(network.CookieSameSiteNone)
		}
		if c.ExpirationDate > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.ExpirationDate), 0))
			p = p.WithExpires(&expires)
		}
		return p.Do(ctx)
	}))
}

// setCookies injects a batch and reports per-cookie outcomes. A cookie
// whose name contains a session hint flags the batch as carrying a
// login session.
func (c *Coordinator) setCookies(ctx context.Context, cookies []protocol.Cookie) protocol.SetCookiesResponse {
	results := make([]protocol.CookieResult, 0, len(cookies))
	succeeded := 0
	hasSession := false

	for _, cookie := range cookies {
		result := protocol.CookieResult{Name: cookie.Name}
		if err := c.cookies.SetCookie(ctx, cookie); err != nil {
			result.Error = err.Error()
			log.Printf("SET_COOKIES: failed to set %s: %v", cookie.Name, err)
		} else {
			result.Success = true
			succeeded++
			lower := strings.ToLower(cookie.Name)
			if strings.Contains(lower, "session") || strings.Contains(lower, "login") {
				hasSession = true
			}
		}
		results = append(results, result)
	}

	return protocol.SetCookiesResponse{
		Success:          succeeded > 0,
		Results:          results,
		HasSessionCookie: hasSession,
		Message:          fmt.Sprintf("Set %d of %d cookies", succeeded, len(cookies)),
	}
}
