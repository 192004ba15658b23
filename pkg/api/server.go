// Package api exposes the generation and lookup flows over a local HTTP
// surface for the operator. It is a thin shell: all semantics live in the
// invoice, store and pdf packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/invoicegen/pkg/invoice"
	"github.com/invoicegen/pkg/sequence"
)

// Directory is the read/write store surface the handlers need beyond
// generation itself.
type Directory interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*invoice.Record, error)
	ListRecords(ctx context.Context, limit int) ([]invoice.Record, error)
	ListRecordsByDateRange(ctx context.Context, from, to time.Time) ([]invoice.Record, error)
	CountRecords(ctx context.Context) (int64, error)
	LoadProfile(ctx context.Context) (*invoice.CompanyProfile, error)
	SaveProfile(ctx context.Context, profile *invoice.CompanyProfile) error
}

// Server routes operator requests to the invoice flows.
type Server struct {
	gen    *invoice.Generator
	dir    Directory
	log    *slog.Logger
	router *mux.Router
}

// New wires the routes.
func New(gen *invoice.Generator, dir Directory, log *slog.Logger) *Server {
	s := &Server{gen: gen, dir: dir, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/invoices", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/invoices", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{orderNumber}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{orderNumber}/pdf", s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req invoice.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, recordToJSON(&res.Record))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var records []invoice.Record
	var err error
	if q.Get("from") != "" || q.Get("to") != "" {
		from, ferr := time.Parse("2006-01-02", q.Get("from"))
		to, terr := time.Parse("2006-01-02", q.Get("to"))
		if ferr != nil || terr != nil {
			s.respond(w, http.StatusBadRequest, map[string]string{"error": "from and to must both be YYYY-MM-DD dates"})
			return
		}
		records, err = s.dir.ListRecordsByDateRange(r.Context(), from, to)
	} else {
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, aerr := strconv.Atoi(raw)
			if aerr != nil || n < 0 {
				s.respond(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		records, err = s.dir.ListRecords(r.Context(), limit)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.dir.CountRecords(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]recordJSON, len(records))
	for i := range records {
		out[i] = recordToJSON(&records[i])
	}
	s.respond(w, http.StatusOK, map[string]any{"invoices": out, "count": len(out), "total": total})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	orderNumber := mux.Vars(r)["orderNumber"]
	rec, err := s.dir.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, recordToJSON(rec))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	orderNumber := mux.Vars(r)["orderNumber"]
	rec, err := s.dir.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := os.Stat(rec.DocumentPath); err != nil {
		s.respond(w, http.StatusNotFound, map[string]string{"error": "document artifact not found"})
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+rec.OrderNumber+".pdf")
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, rec.DocumentPath)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	profile, err := s.dir.LoadProfile(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, profile)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req invoice.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	profile, err := req.Profile()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.dir.SaveProfile(r.Context(), profile); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, profile)
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *invoice.ValidationError
	var capErr *sequence.CapacityError
	switch {
	case errors.As(err, &verr):
		s.respond(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, invoice.ErrRecordNotFound), errors.Is(err, invoice.ErrProfileNotFound):
		s.respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, invoice.ErrDuplicateIdentifier):
		s.respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &capErr):
		s.respond(w, http.StatusConflict, map[string]string{"error": capErr.Error()})
	default:
		s.log.Error("request failed", "error", err.Error())
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("writing response", "error", err.Error())
	}
}

// recordJSON is the wire shape of an issued invoice; amounts are fixed-point
// strings so clients never re-round them.
type recordJSON struct {
	ID             string `json:"id"`
	OrderNumber    string `json:"order_number"`
	InvoiceDate    string `json:"invoice_date"`
	BillingName    string `json:"billing_name"`
	BillingAddress string `json:"billing_address"`
	BillingPhone   string `json:"billing_phone"`
	Currency       string `json:"currency"`
	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"tax_amount"`
	DiscountAmount string `json:"discount_amount"`
	Total          string `json:"total"`
	DocumentPath   string `json:"document_path"`
	CreatedAt      string `json:"created_at"`
}

func recordToJSON(rec *invoice.Record) recordJSON {
	return recordJSON{
		ID:             rec.ID.String(),
		OrderNumber:    rec.OrderNumber,
		InvoiceDate:    rec.InvoiceDate.Format("2006-01-02"),
		BillingName:    rec.BillingName,
		BillingAddress: rec.BillingAddress,
		BillingPhone:   rec.BillingPhone,
		Currency:       string(rec.Currency),
		Subtotal:       rec.Subtotal.StringFixed(2),
		TaxAmount:      rec.TaxAmount.StringFixed(2),
		DiscountAmount: rec.DiscountAmount.StringFixed(2),
		Total:          rec.Total.StringFixed(2),
		DocumentPath:   rec.DocumentPath,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	}
}
