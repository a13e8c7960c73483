package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	chunkPrefix = "chunk:"
)

// makeChunkKey generates a key for the chunk at position.
// Format: prefix + 8 byte big-endian position, so keys iterate in article order.
func makeChunkKey(position int) []byte {
	prefixBytes := []byte(chunkPrefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(position))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
