package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRevocationStoreExpiresWithToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewRevocationStore(newClient(mr))

	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, err := store.IsRevoked(ctx, "jti-1"); err != nil || !revoked {
		t.Fatalf("expected revoked, got %v err=%v", revoked, err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("expected unknown token not revoked")
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected revocation to expire")
	}
}
