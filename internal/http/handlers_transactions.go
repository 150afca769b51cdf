package http

import (
	"fmt"
	"net/http"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

type filterForm struct {
	From     string
	To       string
	Category string
}

type transactionsPage struct {
	Today      string
	Rows       core.Ledger
	Total      core.Money
	Filter     filterForm
	Categories []string
	Analytics  services.AnalyticsView
	Warnings   []string
}

// handleTransactions lists (GET) or submits (POST) transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleSubmitTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, warnings := ParseFilter(q)

	rows, err := s.ledger.Transactions(r.Context(), f)
	if msg := loadWarning(err); msg != "" {
		warnings = append(warnings, msg)
	}
	view, _ := s.ledger.Analytics(r.Context(), f)

	s.render(w, r, "transactions.html", transactionsPage{
		Today: core.Today(s.now()).String(),
		Rows:  rows,
		Total: rows.Total(),
		Filter: filterForm{
			From:     q.Get("from"),
			To:       q.Get("to"),
			Category: q.Get("category"),
		},
		Categories: s.ledger.Policy().Categories(),
		Analytics:  view,
		Warnings:   warnings,
	})
}

// handleSubmitTransaction adds a row. A budget alert is shown alongside the
// success message and never blocks the insertion.
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := ParseTransactionForm(w, r, s.maxReceipt)
	if err != nil {
		s.writeError(w, r, applog.OpSubmit, err)
		return
	}

	res, err := s.ledger.SubmitTransaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpSubmit, err)
		return
	}

	symbol := s.ledger.Symbol()
	t := res.Transaction
	msg := fmt.Sprintf("Added %s for %s on %s", t.Amount.Format(symbol), t.Category, t.Date)

	b := SuccessResponse(msg).
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerFormReset().
		TriggerPageRefresh().
		TriggerSuccessNotification(msg)
	if res.Alert != nil {
		b.TriggerBudgetAlert(res.Alert.Message(symbol))
	}
	b.Write(w)
}

// handleEditTransaction changes date, amount and category of a row.
func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	in, err := ParseTransactionForm(w, r, s.maxReceipt)
	if err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}
	id, err := ParseID(r.FormValue("id"))
	if err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}

	if err := s.ledger.EditTransaction(r.Context(), id, in); err != nil {
		s.writeError(w, r, applog.OpEdit, err)
		return
	}

	msg := fmt.Sprintf("Transaction #%d updated", id)
	SuccessResponse(msg).
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerPageRefresh().
		TriggerSuccessNotification(msg).
		Write(w)
}

// handleDeleteTransaction removes a row. The id comes from a form, a JSON
// body or the query string.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	raw, err := formValue(r, "id")
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	id, err := ParseID(raw)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}

	msg := fmt.Sprintf("Transaction #%d deleted", id)
	SuccessResponse(msg).
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerPageRefresh().
		TriggerSuccessNotification(msg).
		Write(w)
}

// handleClearLedger snapshots the ledger into history and empties it.
func (s *Server) handleClearLedger(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	entry, err := s.ledger.RequestClear(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpClear, err)
		return
	}

	msg := "Ledger was already empty"
	if entry != nil {
		msg = fmt.Sprintf("Ledger cleared. %d transactions saved as %q", len(entry.Transactions), entry.Label())
	}
	SuccessResponse(msg).
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerHistoryChanged(len(s.ledger.History())).
		TriggerPageRefresh().
		TriggerSuccessNotification(msg).
		Write(w)
}
