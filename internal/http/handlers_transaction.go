package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/validation"

	"github.com/go-chi/chi/v5"
)

type createTransactionResponse struct {
	Message     string           `json:"message"`
	Transaction core.Transaction `json:"transaction"`
}

type listTransactionsResponse struct {
	Transactions []core.TransactionView `json:"transactions"`
}

type transactionResponse struct {
	Transaction core.TransactionView `json:"transaction"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(validation.ErrInvalidJSON.Message).Write(w, r)
		return
	}

	var req validation.CreateTransactionRequest
	if err := s.validator.DecodeJSON(body, &req); err != nil {
		s.writeValidationError(w, r, err, "Failed to add transaction")
		return
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), req.Input())
	if err != nil {
		logFailure(r, "Failed to add transaction", err, log.OpCreate)
		InternalServerError("Failed to add transaction").Write(w, r)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTransactionID, tx.ID,
		log.FieldCategory, tx.Category,
		log.FieldAmount, tx.Amount)

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(createTransactionResponse{Message: "Transaction created successfully", Transaction: tx}).
		Write(w, r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var q validation.ListTransactionsQuery
	if err := s.validator.DecodeQuery(r.URL.Query(), &q); err != nil {
		s.writeValidationError(w, r, err, "Failed to retrieve transactions")
		return
	}

	rows, err := s.ledger.ListTransactions(r.Context(), q.Page())
	if err != nil {
		logFailure(r, "Failed to retrieve transactions", err, log.OpList)
		InternalServerError("Failed to retrieve transactions").Write(w, r)
		return
	}
	if rows == nil {
		rows = []core.TransactionView{}
	}

	NewJSONResponse().Body(listTransactionsResponse{Transactions: rows}).Write(w, r)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequestError("ID is required").Write(w, r)
		return
	}

	row, err := s.ledger.GetTransaction(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrTransactionNotFound):
		NotFoundError("Transaction not found").Write(w, r)
	case err != nil:
		logFailure(r, "Failed to retrieve transaction", err, log.OpRead, log.FieldTransactionID, id)
		InternalServerError("Failed to retrieve transaction").Write(w, r)
	default:
		NewJSONResponse().Body(transactionResponse{Transaction: row}).Write(w, r)
	}
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequestError("ID is required").Write(w, r)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(validation.ErrInvalidJSON.Message).Write(w, r)
		return
	}

	// type is not checked against the enum; the CHECK constraint on the table rejects bad values.
	var req validation.UpdateTransactionRequest
	if err := s.validator.DecodeJSON(body, &req, validation.Lenient()); err != nil {
		s.writeValidationError(w, r, err, "Failed to update transaction")
		return
	}

	err = s.ledger.UpdateTransaction(r.Context(), id, req.Update())
	switch {
	case errors.Is(err, core.ErrNoUpdateFields):
		BadRequestError("No valid fields provided to update").Write(w, r)
	case errors.Is(err, core.ErrTransactionNotFound):
		NotFoundError("Transaction not found").Write(w, r)
	case err != nil:
		logFailure(r, "Failed to update transaction", err, log.OpUpdate, log.FieldTransactionID, id)
		InternalServerError("Failed to update transaction").Write(w, r)
	default:
		MessageResponse("Transaction updated successfully").Write(w, r)
	}
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequestError("ID is required").Write(w, r)
		return
	}

	err := s.ledger.DeleteTransaction(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrTransactionNotFound):
		NotFoundError("Transaction not found").Write(w, r)
	case err != nil:
		logFailure(r, "Failed to delete transaction", err, log.OpDelete, log.FieldTransactionID, id)
		InternalServerError("Failed to delete transaction").Write(w, r)
	default:
		MessageResponse("Transaction deleted successfully").Write(w, r)
	}
}

// readBody reads at most maxBodyBytes. An empty body reads as an empty object.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

// writeValidationError sends 400 for client mistakes. Anything else is a programming
// error and is reported as the endpoint's 500.
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, verr.Message)
		BadRequestError(verr.Message).Write(w, r)
		return
	}
	logFailure(r, failure, err, log.OpValidate)
	InternalServerError(failure).Write(w, r)
}
