package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/services"
)

// CheckoutHandler считает цену бронирования и применяет промокоды.
type CheckoutHandler struct {
	checkoutService CheckoutService
	log             *logger.Logger
}

// NewCheckoutHandler создаёт обработчик расчёта цены.
func NewCheckoutHandler(checkoutService CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		log:             log,
	}
}

// Quote возвращает предварительную цену. Журнал промокода не меняется.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, ok := decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	quote, err := h.checkoutService.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to calculate quote")
		return
	}

	writeJSONResponse(w, http.StatusOK, quote)
}

// Checkout считает цену и применяет промокод с записью результата.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, ok := decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	quote, err := h.checkoutService.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to checkout booking")
		return
	}

	writeJSONResponse(w, http.StatusOK, quote)
}

func decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (*models.QuoteRequest, bool) {
	var req models.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = strings.TrimSpace(r.Header.Get("X-User-ID"))
	}
	req.IPAddress = services.ExtractClientIP(r)
	req.UserAgent = r.UserAgent()
	return &req, true
}
