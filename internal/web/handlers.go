package web

// handlers.go implements the JSON API handlers. Each handler does the
// transport work (decode, validate ids, multipart handling) and delegates
// the domain work to the core service; errors flow through respondError.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prospectdb/prospectdb/internal/core"
)

// handleOnboard creates a tenant from a strict-mode upload. Multipart
// fields: file (required), name (tenant display name, defaults to the
// file name).
func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = fileName
	}

	tenant, result, err := s.service.Onboard(r.Context(), name, fileName, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]interface{}{
		"tenant": tenant,
		"ingest": result,
	})
}

// handleIngest stores an uploaded file as a new dataset. Multipart
// fields: file (required), tenant_id (required), title (optional,
// defaults to the file name).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tenantID, err := uuid.Parse(r.FormValue("tenant_id"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: bad tenant id", core.ErrTenantNotFound))
		return
	}

	result, err := s.service.Ingest(r.Context(), tenantID, fileName, r.FormValue("title"), data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}

// readUpload extracts the uploaded file bytes from a multipart form,
// enforcing the configured size limit at the transport layer.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", fmt.Errorf("file too large or invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

// handleGetTenant returns a tenant's balance and dataset entries.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		s.respondError(w, r, core.ErrTenantNotFound)
		return
	}

	tenant, err := s.service.Tenant(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, tenant)
}

// handleLedger returns a tenant's balance movement history.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		s.respondError(w, r, core.ErrTenantNotFound)
		return
	}

	entries, err := s.service.LedgerEntries(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{"entries": entries})
}

// handleDeleteDataset removes a dataset. Query param: tenant_id.
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, err := uuid.Parse(chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, core.ErrDatasetNotFound)
		return
	}
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		s.respondError(w, r, core.ErrTenantNotFound)
		return
	}

	if err := s.service.DeleteDataset(r.Context(), tenantID, datasetID); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFacets returns the derived facet set for a dataset.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, core.ErrDatasetNotFound)
		return
	}

	facets, err := s.service.Facets(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{"facets": facets})
}

// handleFilter applies a facet selection to a dataset and returns the
// matching rows with their original indices.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, core.ErrDatasetNotFound)
		return
	}

	var sel core.FilterSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid filter selection: %w", err))
		return
	}

	result, err := s.service.Filter(r.Context(), id, sel)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// exportRequest is the JSON body for an export.
type exportRequest struct {
	TenantID uuid.UUID `json:"tenantId"`
	Indices  []int     `json:"indices"`
	Format   string    `json:"format"`
}

// handleExport materializes the selected rows into an artifact, debits
// the tenant's balance, and streams the artifact as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid export request: %w", err))
		return
	}

	artifact, err := s.service.Export(r.Context(), req.TenantID, req.Indices, core.ExportFormat(req.Format))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// creditRequestBody is the JSON body for filing a credit request.
type creditRequestBody struct {
	TenantID uuid.UUID `json:"tenantId"`
	Amount   int       `json:"amount"`
}

// handleCreditRequest files a pending credit request for a tenant.
func (s *Server) handleCreditRequest(w http.ResponseWriter, r *http.Request) {
	var req creditRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid credit request: %w", err))
		return
	}

	created, err := s.service.RequestCredits(r.Context(), req.TenantID, req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

// resolveBody is the JSON body for resolving a credit request.
type resolveBody struct {
	Decision string `json:"decision"`
}

// handleResolveCreditRequest applies an operator decision to a pending
// credit request.
func (s *Server) handleResolveCreditRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		s.respondError(w, r, core.ErrRequestNotFound)
		return
	}

	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid resolve request: %w", err))
		return
	}

	resolved, err := s.service.ResolveCreditRequest(r.Context(), id, core.Decision(body.Decision))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, resolved)
}
