package logger

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/utils"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
)

// CommonFields describes the AI backend of a log line. Blank values are
// left out.
func CommonFields(provider, model string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if provider = strings.TrimSpace(provider); provider != "" {
		fields = append(fields, zap.String(FieldProvider, provider))
	}
	if model = strings.TrimSpace(model); model != "" {
		fields = append(fields, zap.String(FieldModel, model))
	}
	return fields
}

// WithCommonFields attaches CommonFields to l. A nil logger becomes a no-op one.
func WithCommonFields(l *zap.Logger, provider, model string) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	fields := CommonFields(provider, model)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Preview logs the rune length of text under <name>_length and at most limit
// runes of it under <name>_preview.
func Preview(name, text string, limit int) []zap.Field {
	return []zap.Field{
		zap.Int(name+"_length", utf8.RuneCountInString(text)),
		zap.String(name+"_preview", utils.TruncateForLog(text, limit)),
	}
}
