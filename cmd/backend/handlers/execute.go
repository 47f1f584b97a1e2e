package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/orchestrator"
)

// ExecuteHandler runs the execution pipeline over a websocket connection.
type ExecuteHandler struct {
	orchestrator      *orchestrator.Orchestrator
	defaultScriptType string
	upgrader          websocket.Upgrader
	logger            logger.Logger
}

// NewExecuteHandler creates a new execute handler. defaultScriptType is
// used when the request does not name one.
func NewExecuteHandler(orch *orchestrator.Orchestrator, defaultScriptType string, log logger.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		orchestrator:      orch,
		defaultScriptType: defaultScriptType,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: log,
	}
}

// Execute upgrades the request to a websocket and drives the execution
// pipeline for the test case in the URL. Pipeline failures are reported
// on the socket itself, so they are only logged here.
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	caseID := mux.Vars(r)["case_id"]
	scriptType := r.URL.Query().Get("script_type")
	if scriptType == "" {
		scriptType = h.defaultScriptType
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket upgrade failed", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return
	}
	defer conn.Close()

	req := &orchestrator.Request{
		CaseID:     caseID,
		ScriptType: scriptType,
		UserID:     userID,
	}

	if err := h.orchestrator.Run(r.Context(), conn, req); err != nil {
		h.logger.Warn(r.Context(), "execution session ended with error", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
			"user_id": userID.String(),
		})
	}
}
