package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert reports a failure that was swallowed so the primary operation could succeed.
// Logged for now; the log pipeline routes level=error + alert field to on-call.
func Alert(message string, labels map[string]string) {
	fields := make(map[string]interface{}, len(labels))
	for k, v := range labels {
		fields[k] = v
	}
	log.Error().
		Str("alert", message).
		Fields(fields).
		Msg("ALERT: consistency issue detected")
}
