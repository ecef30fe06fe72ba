package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/chromedp/chromedp"

	"tokflow/internal/protocol"
)

// Page is the bridge's view of the companion web app tab. Read-only;
// the bridge never mutates the companion app.
type Page interface {
	Eval(ctx context.Context, js string, out interface{}) error
}

// devtoolsPage holds the companion app's tab context. A bridge built
// with a nil tab reports no user.
type devtoolsPage struct {
	tab context.Context
}

func NewDevtoolsPage(tab context.Context) Page {
	return devtoolsPage{tab: tab}
}

func (p devtoolsPage) Eval(ctx context.Context, js string, out interface{}) error {
	if p.tab == nil {
		return errors.New("companion app tab not attached")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.tab, chromedp.Evaluate(js, out))
}

// identityProbeJS reads the logged-in user from the companion app's
// localStorage, with two window-level fallbacks some app builds use.
const identityProbeJS = `
(function() {
	try {
		const raw = window.localStorage.getItem('user');
		if (raw) {
			const user = JSON.parse(raw);
			if (user && (user.id || user.userId)) {
				return {
					success: true,
					userId: String(user.id || user.userId),
					email: user.email || '',
					name: user.name || user.username || ''
				};
			}
		}
	} catch (e) {}

	const injected = window.__TIKTOK_AUTOMATOR_AUTH__ || window.tiktokAutomatorUser;
	if (injected && (injected.id || injected.userId)) {
		return {
			success: true,
			userId: String(injected.id || injected.userId),
			email: injected.email || '',
			name: injected.name || ''
		};
	}

	return { success: false };
})()`

// Bridge reads the companion web app's logged-in user so tasks can be
// attributed to an account without a separate login flow.
type Bridge struct {
	page Page
}

func New(page Page) *Bridge {
	return &Bridge{page: page}
}

// GetUserIdentity reports the companion app's current user. Absence of
// a user is a negative response, not an error.
func (b *Bridge) GetUserIdentity(ctx context.Context) protocol.UserIdentity {
	var raw json.RawMessage
	if err := b.page.Eval(ctx, identityProbeJS, &raw); err != nil {
		log.Printf("GET_USER_ID: probe failed: %v", err)
		return protocol.UserIdentity{Success: false, Error: "User not logged in or user data not accessible"}
	}

	var identity protocol.UserIdentity
	if err := json.Unmarshal(raw, &identity); err != nil || !identity.Success {
		return protocol.UserIdentity{Success: false, Error: "User not logged in or user data not accessible"}
	}
	return identity
}
