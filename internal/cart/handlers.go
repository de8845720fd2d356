package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
)

// Handler wires the cart store to HTTP.
type Handler struct {
	Store    *Store
	Products catalog.Lister
	Logger   zerolog.Logger
	Validate *validator.Validate
}

type itemView struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type cartView struct {
	CartID   string      `json:"cartId"`
	Items    []itemView  `json:"items"`
	Subtotal json.Number `json:"subtotal"`
	Tax      json.Number `json:"tax"`
	Total    json.Number `json:"total"`
}

type productView struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Price json.Number `json:"price"`
}

// Register mounts the product listing and cart routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Route("/carts", func(c chi.Router) {
		c.Post("/", h.Create)
		c.Get("/{id}", h.Get)
		c.Delete("/{id}", h.Delete)
		c.Post("/{id}/items", h.AddItem)
	})
}

// Create registers a new empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	id, snap := h.Store.Create()
	common.JSON(w, http.StatusCreated, map[string]any{"data": newCartView(id, snap)})
}

// Get returns the cart contents and totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	snap, err := h.Store.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": newCartView(id, snap)})
}

// AddItem adds a product to the cart, merging with an existing line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID json.RawMessage `json:"productId"`
		Quantity  json.RawMessage `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	productID, qty, err := decodeAddItem(payload.ProductID, payload.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := h.Store.Add(r.Context(), id, productID, qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": newCartView(id, snap)})
}

// Delete discards the cart.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartID(w, r)
	if !ok {
		return
	}
	h.Store.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts proxies the catalog listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if h.Products == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	products, err := h.Products.Products(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("list_products")
		common.JSONError(w, http.StatusBadGateway, "CATALOG_UNAVAILABLE", "unable to list products", nil)
		return
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{ID: p.ID, Title: p.Title, Price: price(p.Price)})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return "", false
	}
	id := chi.URLParam(r, "id")
	if err := h.validator().Var(id, "required,uuid"); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", ErrCartNotFound.Error(), nil)
		return "", false
	}
	return id, true
}

var defaultValidate = validator.New(validator.WithRequiredStructEnabled())

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidate
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		addErr *AddError
		appErr *common.AppError
	)
	switch {
	case IsInvalidInput(err):
		appErr = common.NewAppError("INVALID_INPUT", err.Error(), http.StatusBadRequest, err)
	case errors.As(err, &addErr):
		h.Logger.Info().Err(addErr.Cause).Str("product_id", addErr.ProductID).Msg("cart_add_failed")
		appErr = common.NewAppError("ADD_FAILED", addErr.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrCartNotFound):
		appErr = common.NewAppError("NOT_FOUND", err.Error(), http.StatusNotFound, err)
	default:
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("cart_handler")
		appErr = common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
	common.WriteAppError(w, appErr)
}

func decodeAddItem(rawID, rawQty json.RawMessage) (string, int, error) {
	var productID string
	if len(rawID) == 0 || json.Unmarshal(rawID, &productID) != nil || productID == "" {
		return "", 0, ErrInvalidProductID
	}
	var f float64
	if len(rawQty) == 0 || json.Unmarshal(rawQty, &f) != nil {
		return "", 0, ErrInvalidQuantity
	}
	qty, err := QuantityFromFloat(f)
	if err != nil {
		return "", 0, err
	}
	return productID, qty, nil
}

func newCartView(id string, s Snapshot) cartView {
	items := make([]itemView, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, itemView{ID: it.ID, Title: it.Title, Price: price(it.Price), Quantity: it.Quantity})
	}
	return cartView{
		CartID:   id,
		Items:    items,
		Subtotal: money(s.Subtotal),
		Tax:      money(s.Tax),
		Total:    money(s.Total),
	}
}

// money renders computed totals with exactly two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// price renders a catalog price as fetched.
func price(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
