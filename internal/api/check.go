package api

import (
	"net/http"

	"github.com/anzen-ai/anzen/internal/pipeline"
)

// handleCheckInput implements POST /v1/anzen/check/input.
// The API-key middleware has already injected the org context.
func (d *Dependencies) handleCheckInput(w http.ResponseWriter, r *http.Request) {
	d.handleCheck(w, r, d.Pipeline.CheckInput)
}

// handleCheckOutput implements POST /v1/anzen/check/output with the
// simplified output policy.
func (d *Dependencies) handleCheckOutput(w http.ResponseWriter, r *http.Request) {
	d.handleCheck(w, r, d.Pipeline.CheckOutput)
}

func (d *Dependencies) handleCheck(
	w http.ResponseWriter,
	r *http.Request,
	check func(pipeline.Request, pipeline.OrgContext) *pipeline.Result,
) {
	var req CheckRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "text is required"})
		return
	}
	if req.Route == "" {
		req.Route = "public:chat"
	}
	if req.Language == "" {
		req.Language = "en"
	}

	org := orgFromContext(r.Context())
	if org == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing organization context"})
		return
	}

	result := check(pipeline.Request{
		Text:      req.Text,
		Route:     req.Route,
		Language:  req.Language,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	}, *org)

	entities := result.Entities
	if entities == nil {
		entities = []pipeline.DetectedEntity{}
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Decision:  result.Decision.String(),
		Entities:  entities,
		SafeText:  result.SafeText,
		RiskLevel: result.RiskLevel.String(),
		TraceID:   result.TraceID,
		Metadata:  result.Metadata,
	})
}
