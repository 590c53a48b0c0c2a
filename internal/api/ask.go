package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/salesqa/salesqa/internal/nl2sql"
	"github.com/salesqa/salesqa/internal/pipeline"
)

type askRequest struct {
	Question string `json:"question"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}

	var req askRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}

	answer, err := deps.Pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		writeAskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer.Entry)
}

func writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{"details": err.Error()}
	switch {
	case errors.Is(err, pipeline.ErrQuestionRequired):
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
	case errors.Is(err, nl2sql.ErrNotConfigured):
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATOR_NOT_CONFIGURED", "completion service is not configured", false, nil)
	case errors.Is(err, pipeline.ErrStoreConnection):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "could not read table samples from the store", true, details)
	case errors.Is(err, pipeline.ErrCompletion):
		writeError(r.Context(), w, http.StatusBadGateway, "COMPLETION_FAILED", "completion service call failed", true, details)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "failed to answer question", true, details)
	}
}

func handleSamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Samples == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SAMPLES_NOT_CONFIGURED", "table sampler is not configured", false, nil)
		return
	}
	samples, err := deps.Samples.Samples(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "could not read table samples from the store", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": samples.All()})
}
