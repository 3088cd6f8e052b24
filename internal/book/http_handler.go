package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"booklibrary/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type listQuery struct {
	Limit int `query:"limit" validate:"min=1,max=5000"`
}

// List handles GET /books
//
// @Summary List latest books
// @Description Books with a description, newest acquisition first
// @Tags books
// @Produce json
// @Param limit query int false "Number of books to fetch" default(1000) minimum(1) maximum(5000)
// @Success 200 {object} ListResult
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery{Limit: DefaultListLimit}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid query parameters",
				[]httpx.ErrorDetail{{Field: "limit", Message: "limit must be an integer"}})
			return
		}
		q.Limit = n
	}
	if details := httpx.ValidateStruct(q); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid query parameters", details)
		return
	}

	result, err := h.service.ListLatest(r.Context(), q.Limit)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// GetByISBNQuery handles GET /book?isbn=
//
// @Summary Get book by ISBN
// @Tags books
// @Produce json
// @Param isbn query string true "ISBN, hyphens optional"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /book [get]
func (h *HTTPHandler) GetByISBNQuery(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("isbn") {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid query parameters",
			[]httpx.ErrorDetail{{Field: "isbn", Message: "isbn is required"}})
		return
	}
	h.getByISBN(w, r, r.URL.Query().Get("isbn"))
}

// GetByISBNPath handles GET /books/{isbn}
//
// @Summary Get book by ISBN
// @Tags books
// @Produce json
// @Param isbn path string true "ISBN, hyphens optional"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{isbn} [get]
func (h *HTTPHandler) GetByISBNPath(w http.ResponseWriter, r *http.Request) {
	h.getByISBN(w, r, r.PathValue("isbn"))
}

func (h *HTTPHandler) getByISBN(w http.ResponseWriter, r *http.Request, raw string) {
	record, err := h.service.GetByISBN(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyISBN):
			httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid ISBN",
				[]httpx.ErrorDetail{{Field: "isbn", Message: "isbn must not be empty"}})
		case errors.Is(err, ErrNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
		default:
			h.storeFailure(w, r, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrStoreUnavailable) {
		slog.Warn("book store unavailable", "request_id", httpx.RequestIDFrom(r), "error", err)
		w.Header().Set("Retry-After", "1")
		httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeStoreUnavailable, "Book store temporarily unavailable", nil)
		return
	}
	slog.Error("book query failed", "request_id", httpx.RequestIDFrom(r), "error", err)
	httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
}
