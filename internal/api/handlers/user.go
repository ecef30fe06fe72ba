package handlers

import (
	"strconv"

	"tokflow/internal/models"
	"tokflow/pkg/database"
	"tokflow/pkg/response"
	"tokflow/pkg/utils"

	"github.com/gin-gonic/gin"
)

func GetProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		response.NotFound(c, "user not found")
		return
	}

	user.Password = ""
	response.Success(c, user)
}

type UpdateProfileRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

func UpdateProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if len(updates) == 0 {
		response.BadRequest(c, "nothing to update")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		response.InternalServerError(c, "failed to update profile")
		return
	}
	response.SuccessWithMessage(c, "profile updated", nil)
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// AdminChangePassword resets another user's password. Admin only.
func AdminChangePassword(c *gin.Context) {
	if !utils.IsAdmin(c.GetUint("user_id")) {
		response.Forbidden(c, "admin only")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		response.InternalServerError(c, "failed to hash password")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", id).Update("password", hashed).Error; err != nil {
		response.InternalServerError(c, "failed to change password")
		return
	}
	response.SuccessWithMessage(c, "password changed", nil)
}
