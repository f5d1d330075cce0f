package handlers

import (
	"net/http"

	"rollcall/auth"
	"rollcall/db"
	"rollcall/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type UserSaveRequest struct {
	Name        string `form:"name" binding:"required"`
	Email       string `form:"email" binding:"required"`
	Password    string `form:"password" binding:"required"`
	EmployeeID  string `form:"employee_id"`
	Permissions []int  `form:"permissions"`
}
type UserLoginRequest struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}
type UserInfo struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	EmployeeID  *string `json:"employee_id"`
	Permissions []int   `json:"permissions"`
}

func UserLogin(c *gin.Context) {
	postReq := UserLoginRequest{}
	err := c.ShouldBindWith(&postReq, binding.Form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := models.UserLogin(postReq.Email, postReq.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err := auth.LoadSession(c).LoginUser(&user); err != nil {
		zap.S().Errorf("Save session of user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "name": user.Name, "employee_id": user.EmployeeID, "permissions": user.GetPermissions()})
}

func UserLogout(c *gin.Context) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}

func UserGetStatus(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, gin.H{"error": "", "name": user.Name, "employee_id": user.EmployeeID, "permissions": user.GetPermissions()})
}

// UserSave creates an account, linking guards to their roster entry
func UserSave(c *gin.Context, user *models.User) {
	postReq := UserSaveRequest{}
	err := c.ShouldBindWith(&postReq, binding.Form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	permissions := []models.Permission{}
	for _, p := range postReq.Permissions {
		permission := models.Permission(p)
		if permission < models.PermissionAdmin || permission > models.PermissionGuard {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown permission"})
			return
		}
		permissions = append(permissions, permission)
	}
	var employeeID *string
	if postReq.EmployeeID != "" {
		employeeID = &postReq.EmployeeID
	}
	created, err := models.UserCreate(postReq.Name, postReq.Email, postReq.Password, employeeID, permissions...)
	if err != nil {
		zap.S().Warnf("Create user %s: %v", postReq.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}
	db.Instance.Model(&models.Grant{}).Where("user_id = ?", created.ID).Update("grantor_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"error": "", "user": UserInfo{
		ID:          created.ID,
		Name:        created.Name,
		Email:       created.Email,
		EmployeeID:  created.EmployeeID,
		Permissions: created.GetPermissions(),
	}})
}

func UserList(c *gin.Context, user *models.User) {
	users := []models.User{}
	if err := db.Instance.Preload("Grants").Order("name").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error 1"})
		return
	}
	result := make([]UserInfo, 0, len(users))
	for i := range users {
		result = append(result, UserInfo{
			ID:          users[i].ID,
			Name:        users[i].Name,
			Email:       users[i].Email,
			EmployeeID:  users[i].EmployeeID,
			Permissions: users[i].GetPermissions(),
		})
	}
	c.JSON(http.StatusOK, result)
}

// UserNewPushToken issues the token a device registers with the push server
func UserNewPushToken(c *gin.Context, user *models.User) {
	user.SetNewPushToken()
	c.JSON(http.StatusOK, gin.H{"error": "", "push_token": user.PushToken})
}
