package utils

import (
	"log"
	"strings"
)

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// LogEvent prints one line in the form
// [MODULE] action=... request_id=... msg=...
// Messages carry ids and counts only, never passenger details.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, lineBreaks.Replace(message))
}
