package controllers

import (
	"net/http"

	"github.com/kledje/storefront-backend/api/responses"
	"github.com/kledje/storefront-backend/api/validators"
	"github.com/kledje/storefront-backend/internal/checkout"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
)

// checkoutRequest is validated by the checkout service after sanitizing.
type checkoutRequest struct {
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerAddress string  `json:"customer_address"`
	Notes           *string `json:"notes"`
}

// CheckoutPlaceOrder converts the caller's cart into an order.
func CheckoutPlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), who, checkout.Contact{
			Name:    body.CustomerName,
			Phone:   body.CustomerPhone,
			Address: body.CustomerAddress,
			Notes:   body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
