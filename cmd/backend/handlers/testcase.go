package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/project"
	"github.com/flux-qa/flux-backend/testcase"
)

// TestCaseHandler handles test case-related requests.
type TestCaseHandler struct {
	testCaseStore testcase.Store
	projectStore  project.Store
	logger        logger.Logger
}

// NewTestCaseHandler creates a new test case handler.
func NewTestCaseHandler(testCaseStore testcase.Store, projectStore project.Store, log logger.Logger) *TestCaseHandler {
	return &TestCaseHandler{
		testCaseStore: testCaseStore,
		projectStore:  projectStore,
		logger:        log,
	}
}

// checkProjectMembership verifies that the authenticated user is a member of
// the given project. Returns false if the check fails (response already written).
func (h *TestCaseHandler) checkProjectMembership(w http.ResponseWriter, r *http.Request, projectID uuid.UUID) bool {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return false
	}

	isMember, err := h.projectStore.IsMember(r.Context(), projectID, userID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to check project membership", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "authorization check failed")
		return false
	}

	if !isMember {
		h.logger.Warn(r.Context(), "unauthorized test case access attempt", map[string]interface{}{
			"user_id":    userID.String(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusForbidden, "you don't have access to this project")
		return false
	}

	return true
}

// CreateTestCaseRequest represents a test case creation request.
type CreateTestCaseRequest struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Steps        testcase.Steps `json:"steps"`
	PrereqCaseID string         `json:"prereq_case_id,omitempty"`
}

// UpdateTestCaseRequest represents a test case update request.
type UpdateTestCaseRequest struct {
	Name         *string         `json:"name,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Steps        *testcase.Steps `json:"steps,omitempty"`
	PrereqCaseID *string         `json:"prereq_case_id,omitempty"`
}

// Create handles creating a new test case under a project.
func (h *TestCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Get user ID from context
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	// Extract project ID from URL
	projectID, ok := parseUUIDOrRespond(w, r, "project_id", "project")
	if !ok {
		return
	}

	if !h.checkProjectMembership(w, r, projectID) {
		return
	}

	// Parse request body
	var req CreateTestCaseRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Create test case; the store assigns the next case ID
	tc := &testcase.TestCase{
		ProjectID:    projectID,
		Name:         req.Name,
		Description:  req.Description,
		Steps:        req.Steps,
		PrereqCaseID: req.PrereqCaseID,
		CreatedBy:    userID,
	}

	if err := h.testCaseStore.Create(r.Context(), tc); err != nil {
		if errors.Is(err, testcase.ErrInvalidTestCaseName) ||
			errors.Is(err, testcase.ErrInvalidSteps) ||
			errors.Is(err, testcase.ErrInvalidCaseID) ||
			errors.Is(err, testcase.ErrPrereqCycle) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error(r.Context(), "failed to create test case", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create test case")
		return
	}

	respondJSON(w, http.StatusCreated, tc)
}

// List handles listing test cases for a project.
func (h *TestCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	// Extract project ID from URL
	projectID, ok := parseUUIDOrRespond(w, r, "project_id", "project")
	if !ok {
		return
	}

	if !h.checkProjectMembership(w, r, projectID) {
		return
	}

	// Parse query parameters
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20 // default
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset := 0 // default
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	// Get total count of test cases
	total, err := h.testCaseStore.CountByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to count test cases", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to count test cases")
		return
	}

	// List test cases
	testCases, err := h.testCaseStore.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list test cases", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list test cases")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(testCases, total, limit, offset))
}

// GetByCaseID handles getting a single test case by its case ID (TCnnnn).
func (h *TestCaseHandler) GetByCaseID(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	tc, err := h.testCaseStore.GetByCaseID(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}

	if !h.checkProjectMembership(w, r, tc.ProjectID) {
		return
	}

	respondJSON(w, http.StatusOK, tc)
}

// Update handles updating a test case.
func (h *TestCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	tc, err := h.testCaseStore.GetByCaseID(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}

	if !h.checkProjectMembership(w, r, tc.ProjectID) {
		return
	}

	// Parse request body
	var req UpdateTestCaseRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Build setters
	var setters []testcase.UpdateSetter
	if req.Name != nil {
		setters = append(setters, testcase.SetName(*req.Name))
	}
	if req.Description != nil {
		setters = append(setters, testcase.SetDescription(*req.Description))
	}
	if req.Steps != nil {
		setters = append(setters, testcase.SetSteps(*req.Steps))
	}
	if req.PrereqCaseID != nil {
		setters = append(setters, testcase.SetPrereqCaseID(*req.PrereqCaseID))
	}

	if len(setters) == 0 {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	// Update test case
	if err := h.testCaseStore.Update(r.Context(), tc.ID, setters...); err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return
		}
		if errors.Is(err, testcase.ErrInvalidTestCaseName) ||
			errors.Is(err, testcase.ErrInvalidSteps) ||
			errors.Is(err, testcase.ErrInvalidCaseID) ||
			errors.Is(err, testcase.ErrPrereqCycle) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error(r.Context(), "failed to update test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to update test case")
		return
	}

	// Get updated test case to return it
	updated, err := h.testCaseStore.GetByCaseID(r.Context(), caseID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to get updated test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get updated test case")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete handles deleting a test case.
func (h *TestCaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	tc, err := h.testCaseStore.GetByCaseID(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}

	if !h.checkProjectMembership(w, r, tc.ProjectID) {
		return
	}

	if err := h.testCaseStore.Delete(r.Context(), tc.ID); err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return
		}
		h.logger.Error(r.Context(), "failed to delete test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to delete test case")
		return
	}

	respondSuccess(w, "test case deleted successfully")
}
