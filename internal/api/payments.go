package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/catalog"
	"pintarai.app/server/internal/core"
)

type CreatePaymentRequest struct {
	PackageID string `json:"package_id"`
}

// CreatePaymentHandler creates a Snap transaction for a token package and
// returns the token and redirect URL the client needs to open the payment
// page.
func (h *APIHandler) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	pkg := catalog.PackageByID(req.PackageID)
	if pkg == nil {
		http.Error(w, "Unknown token package", http.StatusBadRequest)
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil || profile == nil {
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}

	resp, orderID, err := h.paymentService.CreateTransaction(profile, pkg)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("package_id", pkg.ID).Msg("Failed to create payment transaction")
		http.Error(w, "Failed to create payment transaction", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"token":        resp.Token,
		"redirect_url": resp.RedirectURL,
		"order_id":     orderID,
	})
}

type PaymentNotificationRequest struct {
	OrderID string `json:"order_id"`
}

// PaymentNotificationHandler receives Midtrans HTTP notifications. The order
// id from the payload is only a lookup key; the transaction status is
// re-fetched from Midtrans before any tokens are credited.
func (h *APIHandler) PaymentNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req PaymentNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONMessage(w, http.StatusBadRequest, "Invalid notification payload")
		return
	}

	message, err := h.paymentService.HandleNotification(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBadOrderID), errors.Is(err, core.ErrUnknownPackage), errors.Is(err, core.ErrVerification):
			log.Warn().Err(err).Str("order_id", req.OrderID).Msg("Rejected payment notification")
			writeJSONMessage(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to handle payment notification")
			writeJSONMessage(w, http.StatusInternalServerError, "Failed to process notification")
		}
		return
	}

	writeJSONMessage(w, http.StatusOK, message)
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
