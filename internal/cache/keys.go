package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	CategoriesKey     = "categories:all"
	LatestListingsKey = "listings:latest"
	ListingKeyPrefix  = "listing:%d"
)

const (
	CategoriesTTL     = 30 * time.Minute
	LatestListingsTTL = 60 * time.Second
	ListingTTL        = 10 * time.Minute
)

func ListingKey(listingID uint) string {
	return fmt.Sprintf(ListingKeyPrefix, listingID)
}

// Invalidate deletes the given keys. Errors are ignored; entries expire on their own.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateListing drops a listing detail and the home page snapshot that may contain it.
func InvalidateListing(ctx context.Context, listingID uint) {
	Invalidate(ctx, ListingKey(listingID), LatestListingsKey)
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoriesKey)
}
