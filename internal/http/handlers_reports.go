package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"solde/internal/core"
	applog "solde/internal/log"
	"solde/internal/report"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user core.User) {
	d, err := s.reports.Dashboard(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	d.Accounts = nonNil(d.Accounts)
	d.Goals = nonNil(d.Goals)
	d.Recent = nonNil(d.Recent)
	writeJSON(w, http.StatusOK, d)
}

// handleCategories suggests known categories for a typed prefix.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ core.User) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": core.SuggestCategories(r.URL.Query().Get("q")),
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, user core.User) {
	year, err := parseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	rep, err := s.reports.Monthly(r.Context(), user.ID, year)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleTransactionsPDF renders the whole document before writing so a
// failure can still become a JSON error.
func (s *Server) handleTransactionsPDF(w http.ResponseWriter, r *http.Request, user core.User) {
	kind, err := parseKind(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), user.ID, kind)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, report.PDFTitle(kind), txs); err != nil {
		writeError(w, r, applog.OpExport, fmt.Errorf("render pdf: %w", err))
		return
	}

	name := "transactions.pdf"
	if kind != "" {
		name = string(kind) + "-transactions.pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
