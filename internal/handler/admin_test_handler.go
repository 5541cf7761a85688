package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/algolearn/algolearn-backend/internal/middleware"
	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/algolearn/algolearn-backend/internal/response"
	"github.com/algolearn/algolearn-backend/internal/service"
	"github.com/algolearn/algolearn-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AdminTestHandler handles test authoring and lifecycle endpoints.
type AdminTestHandler struct {
	testService       *service.TestService
	submissionService *service.SubmissionService
}

// NewAdminTestHandler creates a new AdminTestHandler.
func NewAdminTestHandler(testService *service.TestService, submissionService *service.SubmissionService) *AdminTestHandler {
	return &AdminTestHandler{
		testService:       testService,
		submissionService: submissionService,
	}
}

func failTestLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotTestAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, service.ErrTestNotDraft):
		response.Fail(c, http.StatusBadRequest, response.ErrTestNotDraft)
	case errors.Is(err, service.ErrTestNotPublished):
		response.Fail(c, http.StatusBadRequest, response.ErrTestNotPublished)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListTests godoc
// GET /api/v1/admin/tests
// Lists the authenticated admin's tests with pagination.
func (h *AdminTestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	tests, pagination, err := h.testService.ListByAuthor(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// CreateTest godoc
// POST /api/v1/admin/tests
// Creates a new draft test.
func (h *AdminTestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	marks := req.MarksPerQuestion
	if marks == 0 {
		marks = 1
	}

	test := &model.Test{
		Title:            req.Title,
		Topic:            req.Topic,
		Week:             req.Week,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MarksPerQuestion: marks,
		NegativeMarking:  req.NegativeMarking,
		AuthorID:         claims.UserID,
	}

	if err := h.testService.Create(c.Request.Context(), test); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// GetTest godoc
// GET /api/v1/admin/tests/:id
// Returns one test, including draft and archived ones.
func (h *AdminTestHandler) GetTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// UpdateTest godoc
// PUT /api/v1/admin/tests/:id
// Updates a draft test's metadata. Published tests must be archived first.
func (h *AdminTestHandler) UpdateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Topic != "" {
		test.Topic = req.Topic
	}
	if req.Week != nil {
		test.Week = *req.Week
	}
	if req.TimeLimitMinutes != nil {
		test.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.MarksPerQuestion != nil {
		test.MarksPerQuestion = *req.MarksPerQuestion
	}
	if req.NegativeMarking != nil {
		test.NegativeMarking = *req.NegativeMarking
	}

	if err := h.testService.Update(c.Request.Context(), claims.UserID, test); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
// Deletes a draft test and its questions.
func (h *AdminTestHandler) DeleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test deleted successfully"})
}

// ListQuestions godoc
// GET /api/v1/admin/tests/:id/questions
// Lists a test's questions, including answer keys and explanations.
func (h *AdminTestHandler) ListQuestions(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.testService.ListQuestions(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/tests/:id/questions
// Bulk replaces a draft test's questions in one transaction.
func (h *AdminTestHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		if q.CorrectOption >= len(q.Options) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"correct_option": "must index into options",
			})
			return
		}
		questions[i] = model.Question{
			TestID:        testID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
			OrderNum:      i + 1,
		}
	}

	if err := h.testService.ReplaceQuestions(c.Request.Context(), testID, claims.UserID, questions); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "questions replaced successfully"})
}

// PublishTest godoc
// POST /api/v1/admin/tests/:id/publish
// Publishes a test: caches payload + answer key to Redis, changes status.
func (h *AdminTestHandler) PublishTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Publish(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test published successfully"})
}

// ArchiveTest godoc
// POST /api/v1/admin/tests/:id/archive
// Archives a published test and evicts it from the Redis fast lane.
func (h *AdminTestHandler) ArchiveTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Archive(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test archived successfully"})
}

// RefreshTestCache godoc
// POST /api/v1/admin/tests/:id/refresh-cache
// Re-caches the test payload + answer key to Redis.
func (h *AdminTestHandler) RefreshTestCache(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.RefreshCache(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "test cache refreshed successfully"})
}

// GetTestResults godoc
// GET /api/v1/admin/tests/:id/results
// Returns paginated learner results for a test, best scores first.
func (h *AdminTestHandler) GetTestResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	results, total, err := h.submissionService.ListResults(c.Request.Context(), testID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}
