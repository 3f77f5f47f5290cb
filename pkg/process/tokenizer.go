package process

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	defaultCodec tokenizer.Codec
	codecMu      sync.RWMutex
	initialized  bool
)

// InitTokenizer selects the encoding used by CountTokens. Empty means "cl100k_base".
// Tool results report token counts so MCP clients can budget their context.
func InitTokenizer(encoding string) error {
	enc := tokenizer.Cl100kBase
	switch encoding {
	case "o200k_base":
		enc = tokenizer.O200kBase
	case "p50k_base":
		enc = tokenizer.P50kBase
	case "r50k_base":
		enc = tokenizer.R50kBase
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return err
	}
	codecMu.Lock()
	defaultCodec = codec
	initialized = true
	codecMu.Unlock()
	return nil
}

// CountTokens returns the token count of text, or -1 when the tokenizer is not
// initialized or encoding fails.
func CountTokens(text string) int {
	codecMu.RLock()
	defer codecMu.RUnlock()

	if !initialized || defaultCodec == nil {
		return -1
	}
	ids, _, err := defaultCodec.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}

// IsInitialized returns whether the tokenizer has been initialized.
func IsInitialized() bool {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return initialized
}
