package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldProvider      = "ai_provider"
	FieldModel         = "ai_model"
	FieldUserID        = "user_id"
	FieldOpportunityID = "opportunity_id"
)

// StringField is a key/value pair that is dropped when either side is blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields, trimming whitespace and skipping
// blank keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to l. A nil logger becomes a no-op logger.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// AIFields describes the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithAI attaches the provider and model fields to l.
func WithAI(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, AIFields(provider, model)...)
}

// WithUser attaches the user id to l.
func WithUser(l *zap.Logger, userID string) *zap.Logger {
	return WithFields(l, StringFields(StringField{Key: FieldUserID, Value: userID})...)
}
