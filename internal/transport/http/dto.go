package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/client-ledger/internal/app"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

type createClientRequest struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

func (r createClientRequest) input() app.CreateClientInput {
	return app.CreateClientInput{
		Name:     r.Name,
		LastName: r.LastName,
		Email:    r.Email,
		Address:  r.Address,
		Phone:    r.Phone,
	}
}

type updateClientRequest struct {
	Name     *string `json:"name"`
	LastName *string `json:"last_name"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
}

func (r updateClientRequest) input() app.UpdateClientInput {
	return app.UpdateClientInput{
		Name:     r.Name,
		LastName: r.LastName,
		Email:    r.Email,
		Address:  r.Address,
		Phone:    r.Phone,
	}
}

type clientResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Address    string     `json:"address,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Active     bool       `json:"active"`
	InactiveAt *time.Time `json:"inactive_at,omitempty"`
	Profit     string     `json:"profit"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newClientResponse(c domain.Client) clientResponse {
	return clientResponse{
		ID:         c.ID,
		Name:       c.Name,
		LastName:   c.LastName,
		Email:      c.Email,
		Address:    c.Address,
		Phone:      c.Phone,
		Active:     c.Active,
		InactiveAt: c.InactiveAt,
		Profit:     money(c.Profit),
		CreatedAt:  c.CreatedAt,
	}
}

func newClientList(cs []domain.Client) []clientResponse {
	out := make([]clientResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, newClientResponse(c))
	}
	return out
}

type profitResponse struct {
	ClientID string `json:"client_id"`
	Profit   string `json:"profit"`
}

type resetResponse struct {
	Reset int64 `json:"reset"`
}

type createOrderRequest struct {
	Title      string          `json:"title"`
	SupplierID string          `json:"supplier_id"`
	ConsumerID string          `json:"consumer_id"`
	Price      decimal.Decimal `json:"price"`
}

func (r createOrderRequest) input() app.CreateOrderInput {
	return app.CreateOrderInput{
		Title:      r.Title,
		SupplierID: r.SupplierID,
		ConsumerID: r.ConsumerID,
		Price:      r.Price,
	}
}

type updatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	SupplierID  string    `json:"supplier_id"`
	ConsumerID  string    `json:"consumer_id"`
	Price       string    `json:"price"`
	Active      bool      `json:"active"`
	AdmittedAt  time.Time `json:"admitted_at"`
	ProcessedAt time.Time `json:"processed_at"`
	CommittedAt time.Time `json:"committed_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		Title:       o.Title,
		SupplierID:  o.SupplierID,
		ConsumerID:  o.ConsumerID,
		Price:       money(o.Price),
		Active:      o.Active,
		AdmittedAt:  o.AdmittedAt,
		ProcessedAt: o.ProcessedAt,
		CommittedAt: o.CommittedAt,
	}
}

func newOrderList(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

// pageFromQuery reads ?page=&size=, both optional.
func pageFromQuery(r *http.Request) (domain.Page, error) {
	var p domain.Page
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, errors.New("page must be a non-negative integer")
		}
		p.Number = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return p, errors.New("size must be a positive integer")
		}
		p.Size = n
	}
	return p, nil
}

func decimalFromQuery(r *http.Request, name string) (decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", name)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number", name)
	}
	return d, nil
}
