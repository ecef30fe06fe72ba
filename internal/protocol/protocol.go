package protocol

import "encoding/json"

// Action names for the message protocol the panel, coordinator and
// page agent speak.
const (
	ActionUploadVideo           = "UPLOAD_VIDEO"
	ActionSetCaption            = "SET_CAPTION"
	ActionAddProduct            = "ADD_PRODUCT"
	ActionClickPost             = "CLICK_POST"
	ActionToggleAIContent       = "TOGGLE_AI_CONTENT"
	ActionCheckLoginStatus      = "CHECK_LOGIN_STATUS"
	ActionGetPageInfo           = "GET_PAGE_INFO"
	ActionGetUserID             = "GET_USER_ID"
	ActionFetchAPI              = "FETCH_API"
	ActionSetCookies            = "SET_COOKIES"
	ActionOpenPersistentWindow  = "OPEN_PERSISTENT_WINDOW"
	ActionClosePersistentWindow = "CLOSE_PERSISTENT_WINDOW"
	ActionPing                  = "PING"
)

// Request is the envelope for every cross-context command.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ErrorKind classifies automation failures. Every page-agent fault is
// converted to one of these before it crosses a context boundary.
type ErrorKind string

const (
	ErrElementNotFound ErrorKind = "ELEMENT_NOT_FOUND"
	ErrTimeout         ErrorKind = "TIMEOUT"
	ErrNotLoggedIn     ErrorKind = "NOT_LOGGED_IN"
	ErrWrongPage       ErrorKind = "WRONG_PAGE"
	ErrNetworkError    ErrorKind = "NETWORK_ERROR"
	ErrUnknownAction   ErrorKind = "UNKNOWN_ACTION"
	ErrStillLocked     ErrorKind = "STILL_LOCKED"
)

// AutomationResult is the uniform return value of every page-agent
// operation. Operations never leak raw errors; they produce this shape.
type AutomationResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Error   ErrorKind `json:"error,omitempty"`
}

func OK(message string) AutomationResult {
	return AutomationResult{Success: true, Message: message}
}

func Fail(kind ErrorKind, message string) AutomationResult {
	return AutomationResult{Success: false, Error: kind, Message: message}
}

// PageType classifies the driven page from its URL path alone.
type PageType string

const (
	PageRegularUpload PageType = "RegularUpload"
	PageStudioUpload  PageType = "StudioUpload"
	PageOther         PageType = "Other"
)

// LoginState is the outcome of the heuristic login scorer.
type LoginState string

const (
	LoggedIn     LoginState = "LoggedIn"
	LoggedOut    LoginState = "LoggedOut"
	LoginUnknown LoginState = "Unknown"
)

// PageContext describes the driven page. Recomputed on demand, never
// cached across navigations.
type PageContext struct {
	URL        string     `json:"url"`
	PageType   PageType   `json:"pageType"`
	LoginState LoginState `json:"loginState"`
}

// PageInfo is the GET_PAGE_INFO response.
type PageInfo struct {
	Success         bool     `json:"success"`
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	PageType        PageType `json:"pageType"`
	IsUploadPage    bool     `json:"isUploadPage"`
	HasVideoInput   bool     `json:"hasVideoInput"`
	HasCaptionInput bool     `json:"hasCaptionInput"`
	Timestamp       int64    `json:"timestamp"`
}

// LoginStatus is the CHECK_LOGIN_STATUS response. The individual
// signals are kept so the panel can show why the scorer decided.
type LoginStatus struct {
	Success         bool       `json:"success"`
	State           LoginState `json:"state"`
	IsLoggedIn      bool       `json:"isLoggedIn"`
	HasLoginButton  bool       `json:"hasLoginButton"`
	HasUploadButton bool       `json:"hasUploadButton"`
	HasUserAvatar   bool       `json:"hasUserAvatar"`
	HasUserMenu     bool       `json:"hasUserMenu"`
	HasUserProfile  bool       `json:"hasUserProfile"`
	HasUserDropdown bool       `json:"hasUserDropdown"`
	HasLoggedInUI   bool       `json:"hasLoggedInUI"`
	IsStudioPage    bool       `json:"isStudioPage"`
	URL             string     `json:"url"`
}

// UploadVideoData is the UPLOAD_VIDEO payload.
type UploadVideoData struct {
	TaskID    string `json:"taskId"`
	VideoURL  string `json:"videoUrl"`
	Caption   string `json:"caption,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

// SetCaptionData is the SET_CAPTION payload.
type SetCaptionData struct {
	Caption string `json:"caption"`
}

// AddProductData is the ADD_PRODUCT payload.
type AddProductData struct {
	ProductID string `json:"productId"`
}

// FetchOptions mirrors the subset of fetch() options the relay honors.
type FetchOptions struct {
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// FetchAPIData is the FETCH_API payload.
type FetchAPIData struct {
	URL     string       `json:"url"`
	Options FetchOptions `json:"options"`
}

// FetchResponse is the relayed HTTP outcome. Data holds parsed JSON
// when the response declares it, the raw body text otherwise.
type FetchResponse struct {
	OK         bool              `json:"ok"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers,omitempty"`
	Data       interface{}       `json:"data"`
	Error      string            `json:"error,omitempty"`
}

// Cookie is one cookie to inject into the browser.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain,omitempty"`
	Path           string  `json:"path,omitempty"`
	Secure         *bool   `json:"secure,omitempty"`
	HTTPOnly       bool    `json:"httpOnly,omitempty"`
	SameSite       string  `json:"sameSite,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

// SetCookiesData is the SET_COOKIES payload.
type SetCookiesData struct {
	Cookies []Cookie `json:"cookies"`
}

// CookieResult reports one cookie injection.
type CookieResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SetCookiesResponse is the SET_COOKIES response.
type SetCookiesResponse struct {
	Success          bool           `json:"success"`
	Results          []CookieResult `json:"results"`
	HasSessionCookie bool           `json:"hasSessionCookie"`
	Message          string         `json:"message"`
}

// UserIdentity is the GET_USER_ID response from the identity bridge.
type UserIdentity struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebhookPayload is the success webhook body.
type WebhookPayload struct {
	TaskID          string `json:"taskId"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	URL             string `json:"url"`
	DetectionMethod string `json:"detectionMethod"`
}

// Pong is the PING response.
type Pong struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
