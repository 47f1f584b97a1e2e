package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/project"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/testcase"
)

// ScriptHandler handles stored script requests.
type ScriptHandler struct {
	scriptStore   scriptgen.Store
	testCaseStore testcase.Store
	projectStore  project.Store
	logger        logger.Logger
}

// NewScriptHandler creates a new script handler.
func NewScriptHandler(scriptStore scriptgen.Store, testCaseStore testcase.Store, projectStore project.Store, log logger.Logger) *ScriptHandler {
	return &ScriptHandler{
		scriptStore:   scriptStore,
		testCaseStore: testCaseStore,
		projectStore:  projectStore,
		logger:        log,
	}
}

// resolveCase looks up the test case and verifies project membership.
// Returns nil if the check fails (response already written).
func (h *ScriptHandler) resolveCase(w http.ResponseWriter, r *http.Request, caseID string) *testcase.TestCase {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return nil
	}

	tc, err := h.testCaseStore.GetByCaseID(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			respondError(w, http.StatusNotFound, "test case not found")
			return nil
		}
		h.logger.Error(r.Context(), "failed to get test case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test case")
		return nil
	}

	isMember, err := h.projectStore.IsMember(r.Context(), tc.ProjectID, userID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to check project membership", map[string]interface{}{
			"error":      err.Error(),
			"project_id": tc.ProjectID.String(),
		})
		respondError(w, http.StatusInternalServerError, "authorization check failed")
		return nil
	}
	if !isMember {
		respondError(w, http.StatusForbidden, "you don't have access to this project")
		return nil
	}

	return tc
}

// ListByCase handles listing stored scripts for a test case, newest first.
func (h *ScriptHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	if h.resolveCase(w, r, caseID) == nil {
		return
	}

	limit, offset := parseLimitOffset(r)

	scripts, err := h.scriptStore.ListByCase(r.Context(), caseID, limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list scripts", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to list scripts")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(scripts, len(scripts), limit, offset))
}

// GetLatest handles getting the most recent stored script for a test case.
func (h *ScriptHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	if h.resolveCase(w, r, caseID) == nil {
		return
	}

	script, err := h.scriptStore.GetLatestByCase(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, scriptgen.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "no script stored for this test case")
			return
		}
		h.logger.Error(r.Context(), "failed to get latest script", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		respondError(w, http.StatusInternalServerError, "failed to get latest script")
		return
	}

	respondJSON(w, http.StatusOK, script)
}

// GetByID handles getting a stored script by its UUID.
func (h *ScriptHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	script, err := h.scriptStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scriptgen.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "script not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get script")
		return
	}

	if h.resolveCase(w, r, script.CaseID) == nil {
		return
	}

	respondJSON(w, http.StatusOK, script)
}
