package web

import (
	"net/http"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/tmendes/orderimport/internal/store"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// centsFormatter renders integer cents as a plain decimal string, for
// example 183674 as "1836.74".
var centsFormatter = money.NewFormatter(2, ".", "", "", "1")

func formatCents(cents int64) string {
	return centsFormatter.Format(cents)
}

type userResponse struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Orders []orderResponse `json:"orders"`
}

type productResponse struct {
	ID    int64  `json:"id"`
	Price string `json:"price"`
}

type orderItemResponse struct {
	ProductID int64  `json:"product_id"`
	Price     string `json:"price"`
}

type orderResponse struct {
	ID       int64               `json:"id"`
	Date     string              `json:"date"`
	Total    string              `json:"total"`
	Products []orderItemResponse `json:"products"`
}

// toOrderResponse renders one order with formatted money fields. It
// serves both the orders listing and the orders nested under users.
func toOrderResponse(o store.OrderRow) orderResponse {
	products := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		products = append(products, orderItemResponse{
			ProductID: it.ProductID,
			Price:     formatCents(it.PriceCents),
		})
	}
	return orderResponse{
		ID:       o.ID,
		Date:     o.Date.Format("2006-01-02"),
		Total:    formatCents(o.TotalCents),
		Products: products,
	}
}

type listResponse[T any] struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Items   []T `json:"items"`
}

// parsePagination reads page and per_page query params. Page numbering
// starts at 1.
func parsePagination(r *http.Request) (page, perPage int, err error) {
	page = 1
	perPage = defaultPerPage

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errInvalidPage
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		perPage, err = strconv.Atoi(raw)
		if err != nil || perPage < 1 || perPage > maxPerPage {
			return 0, 0, errInvalidPerPage
		}
	}
	return page, perPage, nil
}

var (
	errInvalidPage    = &paginationError{"page must be a positive integer"}
	errInvalidPerPage = &paginationError{"per_page must be between 1 and 500"}
)

type paginationError struct{ msg string }

func (e *paginationError) Error() string { return e.msg }

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rows, err := s.catalog.ListUsers(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	items := make([]userResponse, 0, len(rows))
	for _, u := range rows {
		orders := make([]orderResponse, 0, len(u.Orders))
		for _, o := range u.Orders {
			orders = append(orders, toOrderResponse(o))
		}
		items = append(items, userResponse{ID: u.ID, Name: u.Name, Orders: orders})
	}
	respondJSON(w, http.StatusOK, listResponse[userResponse]{Page: page, PerPage: perPage, Items: items})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rows, err := s.catalog.ListProducts(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list products", err)
		return
	}

	items := make([]productResponse, 0, len(rows))
	for _, p := range rows {
		items = append(items, productResponse{ID: p.ID, Price: formatCents(p.PriceCents)})
	}
	respondJSON(w, http.StatusOK, listResponse[productResponse]{Page: page, PerPage: perPage, Items: items})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rows, err := s.catalog.ListOrders(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list orders", err)
		return
	}

	items := make([]orderResponse, 0, len(rows))
	for _, o := range rows {
		items = append(items, toOrderResponse(o))
	}
	respondJSON(w, http.StatusOK, listResponse[orderResponse]{Page: page, PerPage: perPage, Items: items})
}
