package handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"tokflow/internal/models"
	"tokflow/internal/protocol"
	"tokflow/pkg/database"
	"tokflow/pkg/response"
	"tokflow/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AccountRequest struct {
	Name    string `json:"name" binding:"required"`
	Cookies string `json:"cookies"`
}

func GetAccounts(c *gin.Context) {
	userID := c.GetUint("user_id")

	query := database.DB.Model(&models.Account{}).Where("status = ?", 1)
	if !utils.IsAdmin(userID) {
		query = query.Where("user_id = ?", userID)
	}

	var accounts []models.Account
	if err := query.Find(&accounts).Error; err != nil {
		response.InternalServerError(c, "failed to query accounts")
		return
	}
	response.Success(c, accounts)
}

func CreateAccount(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Cookies != "" && !validCookieJSON(req.Cookies) {
		response.BadRequest(c, "cookies must be a JSON array of cookie objects")
		return
	}

	account := models.Account{
		Name:       req.Name,
		UserID:     c.GetUint("user_id"),
		Cookies:    req.Cookies,
		HasSession: hasSessionCookie(req.Cookies),
		Status:     1,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		response.InternalServerError(c, "failed to create account")
		return
	}
	response.SuccessWithMessage(c, "account created", account)
}

func UpdateAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}
	if !utils.HasPermissionOnAccount(c.GetUint("user_id"), uint(id)) {
		response.Forbidden(c, "no permission on this account")
		return
	}

	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Cookies != "" && !validCookieJSON(req.Cookies) {
		response.BadRequest(c, "cookies must be a JSON array of cookie objects")
		return
	}

	updates := map[string]interface{}{
		"name": req.Name,
	}
	if req.Cookies != "" {
		updates["cookies"] = req.Cookies
		updates["has_session"] = hasSessionCookie(req.Cookies)
		updates["last_login_at"] = time.Now()
	}

	if err := database.DB.Model(&models.Account{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		response.InternalServerError(c, "failed to update account")
		return
	}
	response.SuccessWithMessage(c, "account updated", nil)
}

func DeleteAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}
	if !utils.HasPermissionOnAccount(c.GetUint("user_id"), uint(id)) {
		response.Forbidden(c, "no permission on this account")
		return
	}

	if err := database.DB.Delete(&models.Account{}, id).Error; err != nil {
		response.InternalServerError(c, "failed to delete account")
		return
	}
	response.SuccessWithMessage(c, "account deleted", nil)
}

func validCookieJSON(raw string) bool {
	var cookies []protocol.Cookie
	return json.Unmarshal([]byte(raw), &cookies) == nil
}

func hasSessionCookie(raw string) bool {
	var cookies []protocol.Cookie
	if json.Unmarshal([]byte(raw), &cookies) != nil {
		return false
	}
	for _, cookie := range cookies {
		lower := strings.ToLower(cookie.Name)
		if strings.Contains(lower, "session") || strings.Contains(lower, "login") {
			return true
		}
	}
	return false
}
