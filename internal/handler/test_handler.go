package handler

import (
	"errors"
	"net/http"

	"github.com/algolearn/algolearn-backend/internal/middleware"
	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/algolearn/algolearn-backend/internal/response"
	"github.com/algolearn/algolearn-backend/internal/service"
	"github.com/algolearn/algolearn-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TestHandler serves the learner-facing endpoints: the public test catalog
// and attempt submission.
type TestHandler struct {
	testService       *service.TestService
	submissionService *service.SubmissionService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService, submissionService *service.SubmissionService) *TestHandler {
	return &TestHandler{
		testService:       testService,
		submissionService: submissionService,
	}
}

// ListPublic godoc
// GET /api/tests/public
// Returns all published tests with their questions, minus answer keys and
// explanations. Auth is optional; the payload is identical either way.
func (h *TestHandler) ListPublic(c *gin.Context) {
	payloads, err := h.testService.ListPublicPayloads(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": payloads})
}

// GetPublic godoc
// GET /api/tests/public/:id
// Returns one published test's learner payload.
func (h *TestHandler) GetPublic(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.testService.GetPayload(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotPublished) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotPublished)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": payload})
}

// Submit godoc
// POST /api/tests/submit
// Grades a learner's answers server-side and returns the result. The same
// user resubmitting the same test gets the originally stored result back.
func (h *TestHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnswerCountMismatch):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrAnswerCount)
		case errors.Is(err, service.ErrTestNotPublished):
			response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
