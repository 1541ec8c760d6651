// Package contexttrack attributes context-window occupancy to injection
// categories, turn by turn, phase-aware across compaction boundaries.
package contexttrack

import (
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

// Category classifies one attributable addition to context occupancy.
type Category string

const (
	CategoryClaudeMD         Category = "claude-md"
	CategoryMentionedFile    Category = "mentioned-file"
	CategoryToolOutput       Category = "tool-output"
	CategoryThinkingText     Category = "thinking-text"
	CategoryTaskCoordination Category = "task-coordination"
	CategoryUserMessage      Category = "user-message"
)

// Categories lists all categories in their fixed accounting order.
var Categories = []Category{
	CategoryClaudeMD,
	CategoryMentionedFile,
	CategoryToolOutput,
	CategoryThinkingText,
	CategoryTaskCoordination,
	CategoryUserMessage,
}

// Identity derives the dedup key for an injection: a BLAKE3 keyed hash of
// the category's natural key (normalized absolute path for file-backed
// categories, decimal turn index for per-turn categories), truncated to
// 16 bytes and hex-encoded.
//
// This function is the identity contract. The domain key is the ASCII
// string "argus.inject.<category>" zero-padded to 32 bytes, so matching
// inputs produce matching ids across runs and across reimplementations.
func Identity(c Category, key string) string {
	var domain [32]byte
	copy(domain[:], "argus.inject."+string(c))

	h, err := blake3.NewKeyed(domain[:])
	if err != nil {
		// The key is always exactly 32 bytes; NewKeyed cannot fail here.
		panic("contexttrack: blake3 keyed init: " + err.Error())
	}
	h.Write([]byte(key))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// turnIdentity is Identity keyed by turn index, for the categories that
// occur at most once per turn.
func turnIdentity(c Category, turn int) string {
	return Identity(c, strconv.Itoa(turn))
}
