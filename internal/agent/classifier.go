package agent

import (
	"context"
	"log"
	"net/url"

	"tokflow/internal/protocol"
)

// contentPagePath is where the studio redirects after a successful post.
const contentPagePath = "/tiktokstudio/content"

// ClassifyPath determines the page type from the URL path alone.
// Query parameters (e.g. ?from=creator_center) are ignored and a
// trailing slash is tolerated.
func ClassifyPath(rawURL string) protocol.PageType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return protocol.PageOther
	}
	switch u.Path {
	case "/upload", "/upload/":
		return protocol.PageRegularUpload
	case "/tiktokstudio/upload", "/tiktokstudio/upload/":
		return protocol.PageStudioUpload
	}
	return protocol.PageOther
}

const pageProbeJS = `
(function() {
	return {
		title: document.title,
		hasVideoInput: !!document.querySelector('input[type="file"]'),
		hasCaptionInput: !!document.querySelector('textarea, [contenteditable="true"]')
	};
})()`

// GetPageInfo resolves the page context on demand. Nothing is cached
// across navigations.
func (a *PageAgent) GetPageInfo(ctx context.Context) protocol.PageInfo {
	loc, err := a.page.Location(ctx)
	if err != nil {
		log.Printf("GET_PAGE_INFO: failed to read location: %v", err)
		return protocol.PageInfo{PageType: protocol.PageOther, Timestamp: a.clock.Now().UnixMilli()}
	}

	info := protocol.PageInfo{
		Success:   true,
		URL:       loc,
		PageType:  ClassifyPath(loc),
		Timestamp: a.clock.Now().UnixMilli(),
	}
	info.IsUploadPage = info.PageType != protocol.PageOther

	var probe struct {
		Title           string `json:"title"`
		HasVideoInput   bool   `json:"hasVideoInput"`
		HasCaptionInput bool   `json:"hasCaptionInput"`
	}
	if err := a.page.Eval(ctx, pageProbeJS, &probe); err != nil {
		log.Printf("GET_PAGE_INFO: page probe failed: %v", err)
		return info
	}
	info.Title = probe.Title
	info.HasVideoInput = probe.HasVideoInput
	info.HasCaptionInput = probe.HasCaptionInput
	return info
}

// loginProbeJS gathers every login signal in one pass. Phrases and
// selectors track the target page's current markup; this is a
// best-effort heuristic, not a contract.
const loginProbeJS = `
(function() {
	function anyButtonWithText(selectors, phrases) {
		for (const selector of selectors) {
			let elements;
			try { elements = document.querySelectorAll(selector); } catch (e) { continue; }
			for (const element of elements) {
				const text = element.textContent.toLowerCase();
				if (phrases.some(p => text.includes(p))) return true;
			}
		}
		return false;
	}

	const hasLoginButton = anyButtonWithText(
		['[data-e2e="login-button"]', '[data-e2e="login"]', 'button[data-e2e*="login"]',
		 'a[href*="login"]', 'button', 'a[role="button"]'],
		['log in', 'sign in', 'login']);

	const hasUploadButton = anyButtonWithText(
		['[data-e2e="upload-btn"]', 'button[data-e2e*="upload"]',
		 'button[aria-label*="upload"]', 'button'],
		['upload', 'post', 'publish']);

	const hasUserAvatar = !!document.querySelector(
		'[data-e2e="user-avatar"], [data-e2e="avatar"], img[alt*="avatar"], .avatar');
	const hasUserMenu = !!document.querySelector(
		'[data-e2e="user-menu"], [data-e2e="menu"], [aria-label*="menu"]');
	const hasUserProfile = !!document.querySelector(
		'[href*="/@"]:not([href*="tiktok.com/@tiktok"])');
	const hasUserDropdown = !!document.querySelector(
		'[data-e2e="dropdown-menu"], [role="menu"]');

	const hasLoggedInUI =
		document.body.innerHTML.includes('"isLoggedIn":true') ||
		document.body.innerHTML.includes('"loggedIn":true') ||
		document.body.innerHTML.includes('isAuthenticated') ||
		!!window.localStorage.getItem('tt-target-id') ||
		!!window.localStorage.getItem('sid_tt');

	const isStudioPage = window.location.href.includes('tiktokstudio');

	// The studio markup differs structurally, so it gets its own
	// positive-signal set.
	let studioLoggedIn = false;
	if (isStudioPage) {
		let hasPostButton = false;
		for (const button of document.querySelectorAll('button')) {
			const text = button.textContent.toLowerCase();
			if (text.includes('post') || text.includes('publish')) { hasPostButton = true; break; }
		}
		studioLoggedIn =
			!!document.querySelector('[data-e2e="user-info"], .user-info') ||
			!!document.querySelector('input[type="file"]:not([disabled])') ||
			hasPostButton || hasUserAvatar || hasUserMenu || hasUserProfile;
	}

	const isLoggedIn = isStudioPage
		? (!hasLoginButton && studioLoggedIn)
		: (!hasLoginButton && (hasUploadButton || hasUserAvatar || hasUserMenu ||
			hasUserProfile || hasUserDropdown || hasLoggedInUI));

	return {
		isLoggedIn: isLoggedIn,
		hasLoginButton: hasLoginButton,
		hasUploadButton: hasUploadButton,
		hasUserAvatar: hasUserAvatar,
		hasUserMenu: hasUserMenu,
		hasUserProfile: hasUserProfile,
		hasUserDropdown: hasUserDropdown,
		hasLoggedInUI: hasLoggedInUI,
		isStudioPage: isStudioPage,
		url: window.location.href
	};
})()`

// CheckLoginStatus runs the heuristic login scorer. It never fails;
// an unreadable page yields the Unknown state.
func (a *PageAgent) CheckLoginStatus(ctx context.Context) protocol.LoginStatus {
	var status protocol.LoginStatus
	if err := a.page.Eval(ctx, loginProbeJS, &status); err != nil {
		log.Printf("CHECK_LOGIN_STATUS: probe failed: %v", err)
		return protocol.LoginStatus{Success: false, State: protocol.LoginUnknown}
	}
	status.Success = true
	if status.IsLoggedIn {
		status.State = protocol.LoggedIn
	} else {
		status.State = protocol.LoggedOut
	}
	return status
}

// PageContext bundles the two classifiers for callers that need both
// before a mutating operation.
func (a *PageAgent) PageContext(ctx context.Context) protocol.PageContext {
	info := a.GetPageInfo(ctx)
	status := a.CheckLoginStatus(ctx)
	return protocol.PageContext{
		URL:        info.URL,
		PageType:   info.PageType,
		LoginState: status.State,
	}
}
