package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kledje/storefront-backend/api/responses"
	"github.com/kledje/storefront-backend/api/validators"
	"github.com/kledje/storefront-backend/internal/cart"
	"github.com/kledje/storefront-backend/internal/identity"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
	"github.com/kledje/storefront-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type cartMergeResponse struct {
	Merged int           `json:"merged"`
	Cart   *cart.CartDTO `json:"cart"`
}

func cartUnavailable(svc cart.Service) error {
	if svc == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	return nil
}

// CartFetch returns the caller's cart, creating it on first access.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetCart(r.Context(), who.Owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartCount backs the header badge. It never fails: an unavailable count reads as zero.
func CartCount(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 0
		if who, ok := identity.FromContext(r.Context()); ok && svc != nil && !who.Owner.IsZero() {
			count = svc.ItemCount(r.Context(), who.Owner)
		}
		responses.WriteSuccess(w, map[string]int{"count": count})
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
			return
		}

		dto, err := svc.AddItem(r.Context(), who.Owner, productID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartUpdateItem sets a line quantity; zero or less removes the line.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateItemQuantity(r.Context(), who.Owner, itemID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RemoveItem(r.Context(), who.Owner, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), who.Owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// CartMerge moves the anonymous session cart into the signed-in user's cart.
func CartMerge(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cartUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := signedInIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if who.SessionToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session token required"))
			return
		}

		merged, err := svc.Merge(r.Context(), identity.SessionOwner(who.SessionToken), who.Owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetCart(r.Context(), who.Owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartMergeResponse{Merged: merged, Cart: dto})
	}
}
