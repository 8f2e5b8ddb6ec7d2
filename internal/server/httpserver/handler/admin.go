package handler

import (
	"net/http"

	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/infra/buildinfo"
)

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	all := h.backend.Mandates()
	resp := StatusResponse{
		Version:  buildinfo.String(),
		Ready:    h.backend.Ready(),
		Mandates: len(all),
	}
	for _, st := range all {
		if st.State == mandate.Invalid {
			resp.Invalid++
		}
	}
	if snap := h.backend.Snapshot(); snap != nil {
		resp.Snapshot = snap.Number
		resp.PublishedAt = snap.PublishedAt
		resp.Subdomains = len(snap.Subdomains)
		if snap.Root != nil {
			resp.Root = snap.Root.Name()
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	snap := h.backend.Snapshot()
	if snap == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "ST-ROUTE-5030", "no snapshot published")
		return
	}
	routes := make([]Route, 0, len(snap.Subdomains)+1)
	if snap.Root != nil {
		routes = append(routes, Route{Subdomain: "*", Mandate: snap.Root.Name()})
	}
	for _, rt := range snap.Routes() {
		routes = append(routes, Route{Subdomain: rt[0], Mandate: rt[1]})
	}
	h.writeJSON(w, r, http.StatusOK, routes)
}

func (h *Handler) handleListMandates(w http.ResponseWriter, r *http.Request) {
	all := h.backend.Mandates()
	out := make([]MandateInfo, 0, len(all))
	for _, st := range all {
		info := toInfo(st)
		info.Diagnostics = nil
		out = append(out, info)
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) handleGetMandate(w http.ResponseWriter, r *http.Request) {
	st, err := h.backend.Mandate(r.PathValue("name"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toInfo(st))
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.backend.Rebuild(r.Context(), name); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	st, err := h.backend.Mandate(name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toInfo(st))
}

func toInfo(st mandate.Status) MandateInfo {
	return MandateInfo{
		Name:        st.Name,
		State:       st.State.String(),
		Build:       st.Build,
		BuiltAt:     st.BuiltAt,
		Root:        st.Root,
		Subdomains:  st.Subdomains,
		Sources:     st.Sources,
		LastAttempt: st.LastAttempt,
		LastError:   st.LastError,
		Diagnostics: st.Diagnostics,
	}
}
