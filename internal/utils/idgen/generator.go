package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Public id prefixes.
const (
	PrefixUser           = "usr"
	PrefixChannel        = "chn"
	PrefixPost           = "pst"
	PrefixComment        = "cmt"
	PrefixConversation   = "cnv"
	PrefixMessage        = "msg"
	PrefixFile           = "fil"
	PrefixAttachment     = "att"
	PrefixTranslation    = "trn"
	PrefixReaction       = "rct"
	PrefixTTSRecording   = "tts"
	PrefixEmbedding      = "emb"
	PrefixRealtimeEvent  = "evt"
	PrefixVoiceSample    = "vsm"
	PrefixSweepExecution = "swp"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns "<prefix>_<lowercase ulid>". Ids sort by creation time.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// Parse strips the prefix and returns the ULID.
func Parse(prefix, value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, prefix+"_") {
		return ulid.ULID{}, fmt.Errorf("id %q does not have prefix %s_", value, prefix)
	}
	return ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, prefix+"_")))
}

// IsValid reports whether value is a well formed id with the given prefix.
func IsValid(prefix, value string) bool {
	_, err := Parse(prefix, value)
	return err == nil
}

// GenerateSecureID generates a random alphanumeric id with the given prefix and length.
func GenerateSecureID(prefix string, length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"
	encoded := make([]byte, length)
	for i := 0; i < length; i++ {
		encoded[i] = charset[int(bytes[i])%len(charset)]
	}

	return fmt.Sprintf("%s_%s", prefix, string(encoded)), nil
}
