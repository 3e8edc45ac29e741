package cache

import (
	"context"
	"fmt"
	"time"
)

const IdentityKeyPrefix = "user:%d:identity"

const IdentityTTL = 5 * time.Minute

func IdentityKey(userID uint) string {
	return fmt.Sprintf(IdentityKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateIdentity(ctx context.Context, userID uint) {
	Invalidate(ctx, IdentityKey(userID))
}
