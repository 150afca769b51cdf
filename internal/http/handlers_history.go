package http

import (
	"fmt"
	"net/http"

	"finboard/internal/history"
	applog "finboard/internal/log"
)

type historyRow struct {
	Index int
	Entry history.Entry
}

type historyPage struct {
	Entries []historyRow
	Limit   int
}

type historyViewPage struct {
	Index int
	Entry history.Entry
}

// handleHistory lists the cleared-ledger snapshots, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	entries := s.ledger.History()
	rows := make([]historyRow, len(entries))
	for i, e := range entries {
		rows[i] = historyRow{Index: i, Entry: e}
	}
	s.render(w, r, "history.html", historyPage{Entries: rows, Limit: history.MaxEntries})
}

// handleHistoryView shows one snapshot without restoring it.
func (s *Server) handleHistoryView(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	index, err := ParseIndex(r.URL.Query().Get("index"))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	entry, err := s.ledger.HistoryEntry(index)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, "history_view.html", historyViewPage{Index: index, Entry: entry})
}

// handleHistoryRename relabels a snapshot. An empty name restores the
// timestamp label.
func (s *Server) handleHistoryRename(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, applog.OpRename, fmt.Errorf("%w: %v", ErrBadForm, err))
		return
	}

	index, err := ParseIndex(r.PostFormValue("index"))
	if err != nil {
		s.writeError(w, r, applog.OpRename, err)
		return
	}
	if err := s.ledger.RenameHistory(index, sanitizeInput(r.PostFormValue("name"))); err != nil {
		s.writeError(w, r, applog.OpRename, err)
		return
	}

	entry, _ := s.ledger.HistoryEntry(index)
	msg := fmt.Sprintf("History entry renamed to %q", entry.Label())
	SuccessResponse(msg).
		TriggerHistoryChanged(len(s.ledger.History())).
		TriggerSuccessNotification(msg).
		Write(w)
}

// handleHistoryRestore replaces the ledger with a snapshot. The snapshot
// stays in the history log.
func (s *Server) handleHistoryRestore(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	raw, err := formValue(r, "index")
	if err != nil {
		s.writeError(w, r, applog.OpRestore, err)
		return
	}
	index, err := ParseIndex(raw)
	if err != nil {
		s.writeError(w, r, applog.OpRestore, err)
		return
	}

	snap, err := s.ledger.RequestRestore(r.Context(), index)
	if err != nil {
		s.writeError(w, r, applog.OpRestore, err)
		return
	}

	msg := fmt.Sprintf("Restored %d transactions", snap.Count)
	SuccessResponse(msg).
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerPageRefresh().
		TriggerSuccessNotification(msg).
		Write(w)
}
