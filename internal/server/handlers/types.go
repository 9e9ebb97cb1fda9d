package handlers

import (
	"net/http"

	"jobrelay/pkg/api"
)

// ListJobTypes handles GET /ops/types.
// Returns every registered job type with its delivery endpoint and policy.
func (h *Handlers) ListJobTypes(w http.ResponseWriter, r *http.Request) {
	types := h.registry.Types()

	resp := api.ListJobTypesResponse{
		Types: make([]api.JobTypeInfo, 0, len(types)),
	}
	for _, t := range types {
		cfg, err := h.registry.Config(t)
		if err != nil {
			continue
		}
		resp.Types = append(resp.Types, api.JobTypeInfo{
			Type:        string(cfg.Type),
			Endpoint:    cfg.Endpoint,
			Retries:     cfg.Retries,
			TimeoutSecs: int(cfg.Timeout.Seconds()),
			Description: cfg.Description,
		})
	}

	h.respondJson(w, http.StatusOK, resp)
}
