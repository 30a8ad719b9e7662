package identity

import (
	"context"
	"strings"

	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/logger"
)

// CartMerger folds one owner's cart into another's and reports how many
// lines moved.
type CartMerger interface {
	Merge(ctx context.Context, from, to OwnerKey) (int, error)
}

// MergeOnSignIn returns a hub handler that merges the guest session cart into
// the user's cart when a sign-in event carries a session token.
func MergeOnSignIn(merger CartMerger, logg *logger.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		if event.Type != enums.AuthEventSignedIn {
			return nil
		}
		token := strings.TrimSpace(event.SessionToken)
		if token == "" || ValidateSessionToken(token) != nil {
			return nil
		}
		from := SessionOwner(token)
		to := UserOwner(event.UserID)
		moved, err := merger.Merge(ctx, from, to)
		if err != nil {
			return err
		}
		if logg != nil && moved > 0 {
			logCtx := logg.WithFields(ctx, map[string]any{
				"from_owner":  from.String(),
				"to_owner":    to.String(),
				"items_moved": moved,
			})
			logg.Info(logCtx, "session cart merged on sign-in")
		}
		return nil
	}
}
