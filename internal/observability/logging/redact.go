package logging

import (
	"log/slog"
	"regexp"
)

var (
	// Anthropic keys must be masked before the broader OpenAI pattern.
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)

	// Password in a connection URL such as postgres://user:pw@host or redis://:pw@host.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@\s]*):([^@/\s]+)@`)
)

// Redact returns the error message with API keys and connection passwords masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}

// ErrorAttr is slog.Any("error", err) with the message redacted.
func ErrorAttr(err error) slog.Attr {
	return slog.String("error", Redact(err))
}
