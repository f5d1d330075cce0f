package handlers

import (
	"context"
	"io"

	"rollcall/attendance"
	"rollcall/auth"
	"rollcall/models"
	"rollcall/sweeper"

	"github.com/gin-gonic/gin"
)

// ImageLoader streams a stored check-in or enrollment image
type ImageLoader interface {
	Load(ctx context.Context, ref string, w io.Writer) (int64, error)
}

// Handlers holds what the HTTP surface needs. Images, Runs and Live are optional.
type Handlers struct {
	Service *attendance.Service
	Sweeper *sweeper.Sweeper
	Runs    *sweeper.RunLog
	Images  ImageLoader
	Live    *LiveFeed
	// Ready reports whether check-ins can be served (face model loaded, stores reachable)
	Ready func(ctx context.Context) error
}

// Register adds every route to base. Session middleware must already be installed.
func (h *Handlers) Register(base gin.IRouter) {
	router := &auth.Router{Base: base}

	base.GET("/health", Health)
	base.GET("/ready", h.ReadyCheck)

	base.POST("/user/login", UserLogin)
	base.POST("/user/logout", UserLogout)
	router.GET("/user/status", UserGetStatus)
	router.POST("/user/save", UserSave, models.PermissionAdmin)
	router.GET("/user/list", UserList, models.PermissionAdmin)
	router.POST("/user/push-token", UserNewPushToken)

	router.POST("/attendance/checkin", h.CheckIn, models.PermissionGuard)
	router.POST("/attendance/checkout", h.CheckOut, models.PermissionGuard)
	router.GET("/attendance/today", h.Today, models.PermissionGuard)
	router.GET("/attendance/list", h.List, models.PermissionHR)
	router.GET("/attendance/image", h.Image, models.PermissionHR)
	router.POST("/attendance/sweep", h.Sweep, models.PermissionAdmin)
	router.GET("/attendance/sweep/runs", h.SweepRuns, models.PermissionAdmin)

	router.POST("/employee/save", h.EmployeeSave, models.PermissionHR)
	router.GET("/employee/list", h.EmployeeList, models.PermissionHR)
	router.POST("/employee/enroll", h.EmployeeEnroll, models.PermissionHR)

	router.POST("/branch/save", h.BranchSave, models.PermissionAdmin)
	router.GET("/branch/list", h.BranchList, models.PermissionAdmin)

	if h.Live != nil {
		router.GET("/live", h.Live.Serve, models.PermissionHR)
	}
}
