package tracelog

import (
	"hash/crc32"
	"strconv"
)

// calculateChecksum checksums the fields that matter for replay
// integrity, excluding Timestamp (which is informational only).
func calculateChecksum(kind, queue string, seq uint64) uint32 {
	data := kind + queue + strconv.FormatUint(seq, 10)
	return crc32.ChecksumIEEE([]byte(data))
}

func verifyChecksum(e Event) bool {
	return e.Checksum == calculateChecksum(e.Kind, e.Queue, e.Seq)
}
