package events

import (
	"context"

	"github.com/minawano/group-management-api/internal/models"
	"go.uber.org/zap"
)

// LogSink records membership events to the structured log. It stands in for
// the external invitation backend; a real deployment would send the signup
// message configured on the organization.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) MemberAdded(_ context.Context, org *models.Organization, userID uint64) error {
	fields := []zap.Field{
		zap.Uint64("organization_id", org.ID),
		zap.String("organization", org.Name),
		zap.Uint64("user_id", userID),
	}
	if org.SendSignupMessage {
		fields = append(fields, zap.String("signup_message", org.SignupMessage))
	}
	s.logger.Info("member added", fields...)
	return nil
}

func (s *LogSink) MemberRemoved(_ context.Context, org *models.Organization, userID uint64) error {
	s.logger.Info("member removed",
		zap.Uint64("organization_id", org.ID),
		zap.String("organization", org.Name),
		zap.Uint64("user_id", userID),
	)
	return nil
}

func (s *LogSink) OwnerChanged(_ context.Context, org *models.Organization, oldUserID, newUserID uint64) error {
	s.logger.Info("owner changed",
		zap.Uint64("organization_id", org.ID),
		zap.String("organization", org.Name),
		zap.Uint64("old_user_id", oldUserID),
		zap.Uint64("new_user_id", newUserID),
	)
	return nil
}
