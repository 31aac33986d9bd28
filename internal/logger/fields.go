package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider     = "ai_provider"
	FieldModel        = "ai_model"
	FieldUserID       = "user_id"
	FieldConnectionID = "connection_id"
	FieldTopic        = "topic"
	FieldTopicKind    = "topic_kind"
)

// StringField is a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields. Entries with an empty
// key or value after trimming are dropped.
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

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model of a capability adapter.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// SessionFields identifies an audio session connection.
func SessionFields(userID, connectionID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldUserID, Value: userID},
		StringField{Key: FieldConnectionID, Value: connectionID},
	)
}

// TopicFields identifies an interview topic.
func TopicFields(topic, kind string) []zap.Field {
	return StringFields(
		StringField{Key: FieldTopic, Value: topic},
		StringField{Key: FieldTopicKind, Value: kind},
	)
}
