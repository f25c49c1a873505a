package api

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/payments-backend/api/apicommon"
	"github.com/vocdoni/payments-backend/db"
	"github.com/vocdoni/payments-backend/errors"
)

// accountTransactionsHandler lists the posted ledger transactions where the
// given account appears on either side, newest first.
func (a *API) accountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		errors.ErrMalformedURLParam.Withf("accountID is required").Write(w)
		return
	}
	transactions, err := a.db.AccountTransactions(r.Context(), accountID)
	if err != nil {
		if stderrors.Is(err, db.ErrNotFound) {
			errors.ErrAccountNotFound.Write(w)
			return
		}
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, transactions)
}
