package events

import (
	"context"

	"github.com/minawano/group-management-api/internal/models"
)

// Sink receives membership lifecycle events after the owning transaction has
// committed. Implementations back the invitation / notification side of the
// system; their failures are advisory and must never unwind a mutation.
type Sink interface {
	MemberAdded(ctx context.Context, org *models.Organization, userID uint64) error
	MemberRemoved(ctx context.Context, org *models.Organization, userID uint64) error
	OwnerChanged(ctx context.Context, org *models.Organization, oldUserID, newUserID uint64) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) MemberAdded(context.Context, *models.Organization, uint64) error   { return nil }
func (NopSink) MemberRemoved(context.Context, *models.Organization, uint64) error { return nil }
func (NopSink) OwnerChanged(context.Context, *models.Organization, uint64, uint64) error {
	return nil
}
