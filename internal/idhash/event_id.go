package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"weighted-oracle/internal/domain"
)

// ComputeEventID returns the hex SHA256 of oracle|sequence|type|timestamp.
// Replaying a log reproduces the same IDs, so stores can deduplicate on them.
func ComputeEventID(
	oracle domain.Address,
	sequence uint64,
	eventType domain.EventType,
	timestamp uint64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%d",
		oracle,
		sequence,
		string(eventType),
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
