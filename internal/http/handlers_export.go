package http

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"finboard/internal/export"
	applog "finboard/internal/log"
)

// handleExport serves /export/{format} and /export/{file}.{ext} downloads,
// e.g. /export/pdf or /export/transactions.csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/export/")
	if ext := path.Ext(name); ext != "" {
		name = ext
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		ErrorResponse(http.StatusNotFound, err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	l, err := s.ledger.Ledger(ctx)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	data, err := s.exports.Render(f, l, s.ledger.Symbol())
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}

	s.logger.InfoContext(ctx, "Export served",
		applog.FieldOperation, applog.OpExport,
		"format", string(f),
		"bytes", len(data))

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
