package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"rollcall/attendance"
	"rollcall/i18n"
	"rollcall/models"
	"rollcall/storage"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20

var errNoEmployee = errors.New("this account is not linked to an employee")

type AttendanceResponse struct {
	Error    string                   `json:"error"`
	Message  string                   `json:"message"`
	Outcome  attendance.Outcome       `json:"outcome"`
	Record   *models.AttendanceRecord `json:"record"`
	Distance *float64                 `json:"distance,omitempty"`
	// Confidence in [0,1], only when a face was compared
	Confidence *float64 `json:"confidence,omitempty"`
}

// employeeFor returns the employee the request acts on. HR may act for any employee
// (kiosk devices at the gate), everybody else only for the linked one.
func employeeFor(c *gin.Context, user *models.User) (string, error) {
	if id := c.PostForm("employee_id"); id != "" && user.HasPermission(models.PermissionHR) {
		return id, nil
	}
	if user.EmployeeID == nil || *user.EmployeeID == "" {
		return "", errNoEmployee
	}
	return *user.EmployeeID, nil
}

func claimedTime(c *gin.Context) (*time.Time, error) {
	v := c.PostForm("claimed_time")
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: claimed_time must be RFC3339", attendance.ErrInvalid)
	}
	return &t, nil
}

func readImage(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > maxImageSize {
		return nil, fmt.Errorf("%w: image larger than %d MB", attendance.ErrInvalid, maxImageSize>>20)
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxImageSize))
}

func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}

func (h *Handlers) CheckIn(c *gin.Context, user *models.User) {
	employeeID, err := employeeFor(c, user)
	if err != nil {
		c.JSON(http.StatusForbidden, Response{err.Error()})
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"image is required"})
		return
	}
	image, err := readImage(header)
	if err != nil {
		renderError(c, err)
		return
	}
	claimed, err := claimedTime(c)
	if err != nil {
		renderError(c, err)
		return
	}
	result, err := h.Service.CheckIn(c.Request.Context(), employeeID, image, claimed)
	if err != nil {
		renderError(c, err)
		return
	}
	resp := AttendanceResponse{
		Outcome: result.Outcome,
		Record:  result.Record,
		Message: i18n.T(language(c), "outcome."+string(result.Outcome), map[string]any{
			"Time":   clock(result.Record.CheckinTime),
			"Status": string(result.Record.Status),
		}),
	}
	if d := result.Decision; d != nil {
		resp.Distance = &d.Distance
		resp.Confidence = &d.Confidence
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) CheckOut(c *gin.Context, user *models.User) {
	employeeID, err := employeeFor(c, user)
	if err != nil {
		c.JSON(http.StatusForbidden, Response{err.Error()})
		return
	}
	claimed, err := claimedTime(c)
	if err != nil {
		renderError(c, err)
		return
	}
	result, err := h.Service.CheckOut(c.Request.Context(), employeeID, claimed)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, AttendanceResponse{
		Outcome: result.Outcome,
		Record:  result.Record,
		Message: i18n.T(language(c), "outcome."+string(result.Outcome), map[string]any{
			"Time": clock(result.Record.CheckoutTime),
		}),
	})
}

// Today returns the record a check-out would close, null before check-in
func (h *Handlers) Today(c *gin.Context, user *models.User) {
	employeeID := c.Query("employee_id")
	if employeeID == "" || !user.HasPermission(models.PermissionHR) {
		if user.EmployeeID == nil || *user.EmployeeID == "" {
			c.JSON(http.StatusForbidden, Response{errNoEmployee.Error()})
			return
		}
		employeeID = *user.EmployeeID
	}
	record, err := h.Service.Current(c.Request.Context(), employeeID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "record": record})
}

func (h *Handlers) List(c *gin.Context, user *models.User) {
	day := c.DefaultQuery("day", h.Service.Today())
	records, err := h.Service.List(c.Request.Context(), day)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "day": day, "records": records})
}

func (h *Handlers) Image(c *gin.Context, user *models.User) {
	ref := c.Query("ref")
	if h.Images == nil || ref == "" {
		c.JSON(http.StatusNotFound, Response{"not found"})
		return
	}
	buf := bytes.Buffer{}
	_, err := h.Images.Load(c.Request.Context(), ref, &buf)
	if errors.Is(err, storage.ErrUnknownImage) || errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, Response{"not found"})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("cache-control", "private, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

// Sweep marks absences for ?day= (default yesterday) right away. Employees still
// inside their work day are reported as pending, not absent.
func (h *Handlers) Sweep(c *gin.Context, user *models.User) {
	day := c.DefaultQuery("day", h.Service.Yesterday())
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		c.JSON(http.StatusBadRequest, Response{"day must be YYYY-MM-DD"})
		return
	}
	result, err := h.Sweeper.Sweep(c.Request.Context(), day)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "result": result})
}

func (h *Handlers) SweepRuns(c *gin.Context, user *models.User) {
	if h.Runs == nil {
		c.JSON(http.StatusOK, gin.H{"error": "", "runs": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 || limit > 500 {
		limit = 30
	}
	runs, err := h.Runs.Recent(limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "runs": runs})
}
