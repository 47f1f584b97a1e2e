package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flux-qa/flux-backend/artifact"
	"github.com/flux-qa/flux-backend/execution"
	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/project"
	"github.com/flux-qa/flux-backend/testcase"
)

// ExecutionHandler handles execution history requests.
type ExecutionHandler struct {
	executionStore execution.Store
	testCaseStore  testcase.Store
	projectStore   project.Store
	artifacts      artifact.Store
	logger         logger.Logger
}

// NewExecutionHandler creates a new execution handler.
func NewExecutionHandler(
	executionStore execution.Store,
	testCaseStore testcase.Store,
	projectStore project.Store,
	artifacts artifact.Store,
	log logger.Logger,
) *ExecutionHandler {
	return &ExecutionHandler{
		executionStore: executionStore,
		testCaseStore:  testCaseStore,
		projectStore:   projectStore,
		artifacts:      artifacts,
		logger:         log,
	}
}

// checkProjectMembership verifies the authenticated user belongs to the
// project. Returns false if the check fails (response already written).
func (h *ExecutionHandler) checkProjectMembership(w http.ResponseWriter, r *http.Request, projectID uuid.UUID) bool {
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
		respondError(w, http.StatusForbidden, "you don't have access to this project")
		return false
	}

	return true
}

func parseLimitOffset(r *http.Request) (int, int) {
	limit := 20 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset := 0 // default
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}

// GetByExecutionID handles getting a single execution record by its
// execution ID (EXnnnn).
func (h *ExecutionHandler) GetByExecutionID(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["execution_id"]

	record, err := h.executionStore.GetByExecutionID(r.Context(), executionID)
	if err != nil {
		if errors.Is(err, execution.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "execution record not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get execution record", map[string]interface{}{
			"error":        err.Error(),
			"execution_id": executionID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get execution record")
		return
	}

	if !h.checkProjectMembership(w, r, record.ProjectID) {
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// ListByCase handles listing execution records for a test case, newest first.
func (h *ExecutionHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
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

	limit, offset := parseLimitOffset(r)

	records, err := h.executionStore.ListByCase(r.Context(), caseID, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list execution records", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to list execution records")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(records, len(records), limit, offset))
}

// ListByProject handles listing execution records for a project, newest first.
func (h *ExecutionHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDOrRespond(w, r, "project_id", "project")
	if !ok {
		return
	}

	if !h.checkProjectMembership(w, r, projectID) {
		return
	}

	limit, offset := parseLimitOffset(r)

	records, err := h.executionStore.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list execution records", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list execution records")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(records, len(records), limit, offset))
}

// Summary handles aggregating a project's execution history.
func (h *ExecutionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDOrRespond(w, r, "project_id", "project")
	if !ok {
		return
	}

	if !h.checkProjectMembership(w, r, projectID) {
		return
	}

	recentLimit := 10 // default
	if limitStr := r.URL.Query().Get("recent"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			recentLimit = l
		}
	}

	summary, err := h.executionStore.Summary(r.Context(), projectID, recentLimit)
	if err != nil {
		h.logger.Error(r.Context(), "failed to summarize executions", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to summarize executions")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ArtifactURL handles resolving the output artifact URL for an execution.
func (h *ExecutionHandler) ArtifactURL(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["execution_id"]

	record, err := h.executionStore.GetByExecutionID(r.Context(), executionID)
	if err != nil {
		if errors.Is(err, execution.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "execution record not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get execution record", map[string]interface{}{
			"error":        err.Error(),
			"execution_id": executionID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get execution record")
		return
	}

	if !h.checkProjectMembership(w, r, record.ProjectID) {
		return
	}

	if record.ArtifactKey == "" {
		respondError(w, http.StatusNotFound, "no artifact stored for this execution")
		return
	}

	url, err := h.artifacts.URL(r.Context(), record.ArtifactKey)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			respondError(w, http.StatusNotFound, "artifact not found")
			return
		}
		h.logger.Error(r.Context(), "failed to resolve artifact URL", map[string]interface{}{
			"error":        err.Error(),
			"execution_id": executionID,
			"artifact_key": record.ArtifactKey,
		})
		respondError(w, http.StatusInternalServerError, "failed to resolve artifact URL")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"execution_id": executionID,
		"url":          url,
	})
}
