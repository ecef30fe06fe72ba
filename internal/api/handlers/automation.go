package handlers

import (
	"encoding/json"
	"io"

	"tokflow/internal/coordinator"
	"tokflow/internal/protocol"
	"tokflow/internal/services"
	"tokflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// coord is the process's coordinator, set once at startup.
var coord *coordinator.Coordinator

func InitHandlers(c *coordinator.Coordinator) {
	coord = c
}

func dispatch(c *gin.Context, action string, data json.RawMessage) {
	resp := coord.Dispatch(c.Request.Context(), protocol.Request{Action: action, Data: data})
	response.Success(c, resp)
}

func Ping(c *gin.Context) {
	dispatch(c, protocol.ActionPing, nil)
}

func GetPageInfo(c *gin.Context) {
	dispatch(c, protocol.ActionGetPageInfo, nil)
}

func GetLoginStatus(c *gin.Context) {
	dispatch(c, protocol.ActionCheckLoginStatus, nil)
}

func GetUserIdentity(c *gin.Context) {
	dispatch(c, protocol.ActionGetUserID, nil)
}

// RelayFetch exposes the coordinator's fetch relay. The body is the
// FETCH_API payload.
func RelayFetch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable request body")
		return
	}
	dispatch(c, protocol.ActionFetchAPI, body)
}

// SetCookies injects cookies into the automation browser directly,
// outside any task.
func SetCookies(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable request body")
		return
	}
	dispatch(c, protocol.ActionSetCookies, body)
}

// GetPresence reports the last login state observed by the presence
// poller without touching the page.
func GetPresence(c *gin.Context) {
	response.Success(c, gin.H{"state": services.GlobalPresence.Current()})
}

func OpenWindow(c *gin.Context) {
	dispatch(c, protocol.ActionOpenPersistentWindow, nil)
}

func CloseWindow(c *gin.Context) {
	dispatch(c, protocol.ActionClosePersistentWindow, nil)
}

// RunAction is the generic passthrough for one-off page operations
// (SET_CAPTION, ADD_PRODUCT, TOGGLE_AI_CONTENT, CLICK_POST) driven
// manually from the panel.
func RunAction(c *gin.Context) {
	var req protocol.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Action == "" {
		response.BadRequest(c, "action is required")
		return
	}
	dispatch(c, req.Action, req.Data)
}
