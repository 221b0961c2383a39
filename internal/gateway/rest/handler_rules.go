package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/pkg/model"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// messageEnvelope is the mutation response shape. Record is omitted on
// failure; a non-fatal degradation after the store write rides along as
// a warning instead of failing the request.
type messageEnvelope struct {
	Message string      `json:"message"`
	Record  *model.Rule `json:"record,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

type listEnvelope struct {
	Results []model.RuleView `json:"results"`
}

// updatedRecord is the update response: the record's fields at the top
// level, with a warning riding alongside when a post-write trigger
// operation degraded.
type updatedRecord struct {
	model.Rule
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	var q index.Query
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return
	}

	views, err := h.rules.List(r.Context(), q)
	if err != nil {
		writeInternalError(w, err, "Listing rules failed")
		return
	}
	if views == nil {
		views = []model.RuleView{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Results: views})
}

func (h *Handler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeRuleError(w, r.PathValue("name"), err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule model.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.rules.Create(r.Context(), rule)
	if err != nil {
		h.writeRuleError(w, rule.Name, err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{
		Message: "Record saved",
		Record:  &res.Rule,
		Warning: res.Warning,
	})
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var patch model.RulePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.rules.Update(r.Context(), name, patch)
	if err != nil {
		h.writeRuleError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedRecord{Rule: res.Rule, Warning: res.Warning})
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Delete(r.Context(), r.PathValue("name")); err != nil {
		h.writeRuleError(w, r.PathValue("name"), err)
		return
	}
	// The record is gone; it is never echoed back.
	writeJSON(w, http.StatusOK, messageEnvelope{Message: "Record deleted"})
}

// writeRuleError maps lifecycle errors onto the wire contract.
func (h *Handler) writeRuleError(w http.ResponseWriter, name string, err error) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageEnvelope{Message: "Record does not exist"})
	case errors.Is(err, model.ErrExists):
		writeJSON(w, http.StatusConflict, messageEnvelope{
			Message: fmt.Sprintf("a record already exists for %s", name),
		})
	case errors.Is(err, model.ErrPreconditionFailed):
		writeError(w, http.StatusConflict, ErrCodeConflict, "Record changed since read")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, verr.Error())
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, model.ErrProvisioning):
		writeInternalError(w, err, "Trigger operation failed")
	default:
		writeInternalError(w, err, "Internal error")
	}
}
