package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

const sessionKey = "cart"

// FromSession loads the caller's cart. A session without one yields an
// empty cart, never an error: a malformed blob is treated as absent
// rather than wedging the whole session.
func FromSession(ctx context.Context, session *scs.SessionManager) Cart {
	b, ok := session.Get(ctx, sessionKey).([]byte)
	if !ok {
		return New()
	}

	var c Cart
	if err := json.Unmarshal(b, &c); err != nil || c.Entries == nil {
		return New()
	}

	return c
}

// Save writes the cart back to the session.
func Save(ctx context.Context, session *scs.SessionManager, c Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}

	session.Put(ctx, sessionKey, b)
	return nil
}
