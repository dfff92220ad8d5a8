package api

import (
	"encoding/json"
	"net/http"

	"ssomgr/internal/audit"
	"ssomgr/internal/domain"
	"ssomgr/internal/validation"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func (s *Server) handleProvidersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		providers []domain.ProviderConfig
		err       error
	)
	if r.URL.Query().Get("enabled") == "true" {
		providers, err = s.store.ListEnabled(ctx)
	} else {
		providers, err = s.store.List(ctx)
	}
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if providers == nil {
		providers = []domain.ProviderConfig{}
	}
	writeJSON(w, http.StatusOK, providers)
}

func (s *Server) handleProviderGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	p, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !ok {
		s.writeErr(ctx, w, http.StatusNotFound, "provider not found", "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProviderCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in domain.CreateProvider
	if err := decodeBody(w, r, &in); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if errs := validation.ValidateCreate(in); len(errs) > 0 {
		s.writeErr(ctx, w, http.StatusBadRequest, "validation failed", validation.Join(errs).Error())
		return
	}

	p, err := s.store.Create(ctx, in)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}

	s.logAudit(ctx, audit.ActionCreate, audit.ResourceProvider, p.ID, p.Name, http.StatusCreated)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProviderUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var in domain.UpdateProvider
	if err := decodeBody(w, r, &in); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	existing, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !ok {
		s.writeErr(ctx, w, http.StatusNotFound, "provider not found", "")
		return
	}

	updated := mergeUpdate(existing, in)

	if errs := validation.ValidateProvider(updated); len(errs) > 0 {
		s.writeErr(ctx, w, http.StatusBadRequest, "validation failed", validation.Join(errs).Error())
		return
	}

	if err := s.store.Save(ctx, updated); err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}

	s.logAudit(ctx, audit.ActionUpdate, audit.ResourceProvider, updated.ID, updated.Name, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleProviderDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	existing, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !ok {
		s.writeErr(ctx, w, http.StatusNotFound, "provider not found", "")
		return
	}

	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !removed {
		s.writeErr(ctx, w, http.StatusNotFound, "provider not found", "")
		return
	}

	s.logAudit(ctx, audit.ActionDelete, audit.ResourceProvider, id, existing.Name, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

// mergeUpdate applies the set fields of an update onto an existing record.
// ID and creation timestamp are immutable; unknown fields in the request
// body are ignored by decoding into the typed update struct.
func mergeUpdate(existing domain.ProviderConfig, in domain.UpdateProvider) domain.ProviderConfig {
	out := existing.Clone()
	if in.Name != nil {
		out.Name = *in.Name
	}
	if in.Type != nil {
		out.Type = *in.Type
	}
	if in.Logo != nil {
		out.Logo = *in.Logo
	}
	if in.IsEnabled != nil {
		out.IsEnabled = *in.IsEnabled
	}
	if in.Description != nil {
		out.Description = *in.Description
	}
	if in.Config != nil {
		cfg := make(map[string]string, len(*in.Config))
		for k, v := range *in.Config {
			cfg[k] = v
		}
		out.Config = cfg
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
