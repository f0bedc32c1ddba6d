package governance

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
)

// Seal returns e with its checksum computed over every other field.
func Seal(e model.GovernanceLogEntry) model.GovernanceLogEntry {
	e.Checksum = checksum(e)
	return e
}

// Intact reports whether an entry still matches its checksum.
func Intact(e model.GovernanceLogEntry) bool {
	return e.Checksum != "" && e.Checksum == checksum(e)
}

func checksum(e model.GovernanceLogEntry) string {
	h := sha256.New()
	for _, part := range []string{
		e.ID,
		e.EventType,
		string(e.Severity),
		e.Details,
		e.UserID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	} {
		_, _ = h.Write([]byte(strings.ReplaceAll(part, "\x1f", " ")))
		_, _ = h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}
