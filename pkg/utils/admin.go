package utils

import (
	"tokflow/internal/models"
	"tokflow/pkg/database"
)

// IsAdmin checks if the user with given ID is an admin user
func IsAdmin(userID uint) bool {
	var user models.User
	err := database.DB.First(&user, userID).Error
	if err != nil {
		return false
	}
	return user.Username == "admin"
}

// HasPermissionOnAccount checks if user has permission on an account (owner or admin)
func HasPermissionOnAccount(userID uint, accountID uint) bool {
	if IsAdmin(userID) {
		return true
	}

	var account models.Account
	err := database.DB.Where("id = ? AND user_id = ? AND status = ?", accountID, userID, 1).First(&account).Error
	return err == nil
}

// HasPermissionOnTask checks if user has permission on a post task (owner, account owner, or admin)
func HasPermissionOnTask(userID uint, taskID uint) bool {
	if IsAdmin(userID) {
		return true
	}

	var task models.PostTask
	err := database.DB.Preload("Account").Where("id = ?", taskID).First(&task).Error
	if err != nil {
		return false
	}

	return task.UserID == userID || task.Account.UserID == userID
}
