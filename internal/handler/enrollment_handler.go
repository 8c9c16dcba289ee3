package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/pkg/response"
)

type enrollmentService interface {
	SubmitRequest(ctx context.Context, userID string, role models.UserRole, req dto.SubmitEnrollmentRequest) (*models.EnrollmentRequest, error)
	ApproveRequest(ctx context.Context, requestID, reviewerID string, review dto.ReviewRequest) (*models.EnrollmentRequest, error)
	RejectRequest(ctx context.Context, requestID, reviewerID string, review dto.ReviewRequest) (*models.EnrollmentRequest, error)
	Status(ctx context.Context, userID string, course models.Course) (*models.CourseStatus, error)
	ListRequests(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error)
	ListMine(ctx context.Context, userID string, page, size int) ([]models.EnrollmentRequestDetail, *models.Pagination, error)
	CourseOverview(ctx context.Context, course models.Course) (*dto.CourseOverview, error)
}

// EnrollmentHandler exposes the request side of the enrollment workflow.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Submit godoc
// @Summary Request enrollment in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.SubmitEnrollmentRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/requests [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid enrollment request payload"))
		return
	}
	request, err := h.enrollments.SubmitRequest(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Request submitted successfully", request)
}

// Mine godoc
// @Summary List my enrollment requests
// @Tags Enrollments
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/requests/mine [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	page, size := pageFromQuery(c)
	requests, pagination, err := h.enrollments.ListMine(c.Request.Context(), claims.UserID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Status godoc
// @Summary Enrollment status for a course
// @Description Returns approved, pending, rejected (with reason) or not_requested.
// @Tags Enrollments
// @Produce json
// @Param skill_group query string true "Group"
// @Param skill_subgroup query string true "Subgroup"
// @Param skill_name query string true "Skill"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/status [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	status, err := h.enrollments.Status(c.Request.Context(), claims.UserID, courseFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Overview godoc
// @Summary Course overview
// @Tags Enrollments
// @Produce json
// @Param skill_group query string true "Group"
// @Param skill_subgroup query string true "Subgroup"
// @Param skill_name query string true "Skill"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/overview [get]
func (h *EnrollmentHandler) Overview(c *gin.Context) {
	overview, err := h.enrollments.CourseOverview(c.Request.Context(), courseFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, overview.Cached)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}

// AdminList godoc
// @Summary Admin request queue
// @Tags Admin
// @Produce json
// @Param status query string false "pending (default), approved or rejected"
// @Param user_id query string false "Filter by user"
// @Param skill_group query string false "Group"
// @Param skill_subgroup query string false "Subgroup"
// @Param skill_name query string false "Skill"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requests [get]
func (h *EnrollmentHandler) AdminList(c *gin.Context) {
	page, size := pageFromQuery(c)
	filter := models.EnrollmentRequestFilter{
		UserID:   c.Query("user_id"),
		Status:   models.RequestStatus(strings.ToLower(c.Query("status"))),
		Course:   courseFromQuery(c),
		Page:     page,
		PageSize: size,
	}
	requests, pagination, err := h.enrollments.ListRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest false "Review notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requests/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	h.review(c, h.enrollments.ApproveRequest, "Request approved")
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest false "Review notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requests/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	h.review(c, h.enrollments.RejectRequest, "Request rejected")
}

type reviewFunc func(ctx context.Context, requestID, reviewerID string, review dto.ReviewRequest) (*models.EnrollmentRequest, error)

func (h *EnrollmentHandler) review(c *gin.Context, fn reviewFunc, message string) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	requestID, ok := idParam(c, "id", "pending request")
	if !ok {
		return
	}
	var review dto.ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&review); err != nil {
			response.Error(c, bindError(err, "invalid review payload"))
			return
		}
	}
	request, err := fn(c.Request.Context(), requestID, claims.UserID, review)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, message, request)
}
