package handlers

import (
	"net/http"

	"rollcall/models"

	"github.com/gin-gonic/gin"
)

const maxEnrollImages = 5

type EmployeeSaveRequest struct {
	ID       string       `json:"id" binding:"required"`
	Name     string       `json:"name" binding:"required"`
	Shift    models.Shift `json:"shift" binding:"required"`
	BranchID string       `json:"branch_id"`
	Active   *bool        `json:"active"` // defaults to true
}

func (h *Handlers) EmployeeSave(c *gin.Context, user *models.User) {
	req := EmployeeSaveRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	employee := models.Employee{
		ID:       req.ID,
		Name:     req.Name,
		Shift:    req.Shift,
		BranchID: req.BranchID,
		Active:   req.Active == nil || *req.Active,
	}
	if err := h.Service.SaveEmployee(c.Request.Context(), &employee); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "employee": employee})
}

func (h *Handlers) EmployeeList(c *gin.Context, user *models.User) {
	employees, err := h.Service.Employees(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "employees": employees})
}

// EmployeeEnroll takes form field employee_id and one or more "image" files
func (h *Handlers) EmployeeEnroll(c *gin.Context, user *models.User) {
	employeeID := c.PostForm("employee_id")
	form, err := c.MultipartForm()
	if err != nil || employeeID == "" {
		c.JSON(http.StatusBadRequest, Response{"employee_id and image are required"})
		return
	}
	headers := form.File["image"]
	if len(headers) == 0 || len(headers) > maxEnrollImages {
		c.JSON(http.StatusBadRequest, Response{"1 to 5 images are required"})
		return
	}
	images := make([][]byte, 0, len(headers))
	for _, header := range headers {
		image, err := readImage(header)
		if err != nil {
			renderError(c, err)
			return
		}
		images = append(images, image)
	}
	identity, err := h.Service.Enroll(c.Request.Context(), employeeID, images...)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "enrollment": identity})
}
