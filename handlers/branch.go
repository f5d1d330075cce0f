package handlers

import (
	"net/http"

	"rollcall/models"

	"github.com/gin-gonic/gin"
)

type BranchSaveRequest struct {
	ID       string   `json:"id" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	GpsLat   *float64 `json:"gps_lat"`
	GpsLong  *float64 `json:"gps_long"`
	Timezone string   `json:"timezone"` // derived from gps_lat/gps_long when empty
}

func (h *Handlers) BranchSave(c *gin.Context, user *models.User) {
	req := BranchSaveRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	branch := models.Branch{
		ID:       req.ID,
		Name:     req.Name,
		GpsLat:   req.GpsLat,
		GpsLong:  req.GpsLong,
		Timezone: req.Timezone,
	}
	if err := h.Service.SaveBranch(c.Request.Context(), &branch); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "branch": branch})
}

func (h *Handlers) BranchList(c *gin.Context, user *models.User) {
	branches, err := h.Service.Branches(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "branches": branches})
}
