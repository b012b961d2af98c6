package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every AI log entry.
const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldTask      = "ai_task"
	FieldRequestID = "request_id"
)

// nonEmpty turns key/value pairs into string fields. Pairs whose trimmed key or value is
// empty are skipped; a trailing key without a value is ignored.
func nonEmpty(pairs ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// WithFields attaches fields to l. A nil logger becomes a no-op one.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// CommonFields describes the provider and model serving a request.
func CommonFields(provider, model string) []zap.Field {
	return nonEmpty(FieldProvider, provider, FieldModel, model)
}

func WithCommonFields(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, CommonFields(provider, model)...)
}

// RequestFields identifies a single matcher call so its log entries can be correlated.
func RequestFields(task, requestID string) []zap.Field {
	return nonEmpty(FieldTask, task, FieldRequestID, requestID)
}
