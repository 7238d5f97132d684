package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"mvn-audit/audit"
	"mvn-audit/mvn"
	"mvn-audit/osv"
	"mvn-audit/storage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxTreeSize = 8 << 20

type Storage interface {
	ListFindingsFiltered(ctx context.Context, purl string) ([]storage.Finding, error)
	GetVulnerability(ctx context.Context, id string) (osv.Vulnerability, error)
	DeleteVulnerability(ctx context.Context, id string) error
}

type Auditor interface {
	Audit(ctx context.Context, lines []string) (*audit.Report, error)
	RefreshVulnerabilities(ctx context.Context) error
}

type Handler struct {
	Store   Storage
	Auditor Auditor
	Log     *logrus.Logger
}

func (h *Handler) CreateAudit(w http.ResponseWriter, r *http.Request) {
	lines, err := mvn.ReadLines(http.MaxBytesReader(w, r.Body, maxTreeSize))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.Auditor.Audit(r.Context(), lines)
	if errors.Is(err, mvn.ErrMalformedCoordinate) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.Log.WithError(err).Error("auditing dependency tree")
		http.Error(w, "vulnerability lookup failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report.Summary()); err != nil {
		h.Log.WithError(err).Error("encoding audit response")
	}
}

func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	purl := r.URL.Query().Get("purl")

	findings, err := h.Store.ListFindingsFiltered(r.Context(), purl)
	if err != nil {
		h.Log.WithError(err).Error("listing findings")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if findings == nil {
		findings = []storage.Finding{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(findings); err != nil {
		h.Log.WithError(err).Error("encoding findings response")
	}
}

func (h *Handler) GetVulnerability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing vulnerability id", http.StatusBadRequest)
		return
	}

	v, err := h.Store.GetVulnerability(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "vulnerability not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.WithField("id", id).WithError(err).Error("fetching vulnerability")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.WithError(err).Error("encoding vulnerability response")
	}
}

func (h *Handler) DeleteVulnerability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing vulnerability id", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteVulnerability(r.Context(), id); err != nil {
		h.Log.WithField("id", id).WithError(err).Error("deleting vulnerability")
		http.Error(w, "failed to delete vulnerability", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Auditor.RefreshVulnerabilities(r.Context()); err != nil {
		h.Log.WithError(err).Error("failed to refresh vulnerabilities")
		http.Error(w, "failed to refresh vulnerabilities", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/audits", h.CreateAudit)
	r.Get("/findings", h.ListFindings)
	r.Get("/vulnerabilities/{id}", h.GetVulnerability)
	r.Delete("/vulnerabilities/{id}", h.DeleteVulnerability)
	r.Post("/vulnerabilities/refresh", h.RefreshHandler)
}
