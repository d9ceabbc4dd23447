package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ChainEngine computes and verifies the keyed hashes that link posted
// entries together. The same recomputation path is used for producing
// and verifying hashes; there is no separate trust path.
type ChainEngine struct {
	key []byte
}

// NewChainEngine creates a ChainEngine. The key is a required secret;
// an empty key is a wiring error, not a runtime default.
func NewChainEngine(key []byte) (*ChainEngine, error) {
	if len(key) == 0 {
		return nil, ErrHashKeyRequired
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &ChainEngine{key: k}, nil
}

func (c *ChainEngine) mac(content string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// EntryHash computes the chain hash of an entry given its
// predecessor's hash (or Genesis for position 0).
func (c *ChainEngine) EntryHash(e *JournalEntry, prevHash string) string {
	return c.mac(CanonicalContent(e) + "|prev=" + prevHash)
}

// ImmutableHash computes the posting-time hash over the narrow
// posted-immutable field set. It is never a fallback for EntryHash;
// the two are independent tamper signals.
func (c *ChainEngine) ImmutableHash(e *JournalEntry) string {
	return c.mac(ImmutableContent(e))
}

// VerifyEntryHash recomputes the chain hash from the entry's stored
// content and prevHash and compares it to the stored hash in constant
// time.
func (c *ChainEngine) VerifyEntryHash(e *JournalEntry) bool {
	expected := c.EntryHash(e, e.PrevHash)
	return hmac.Equal([]byte(expected), []byte(e.Hash))
}

// VerifyImmutableHash recomputes the immutable hash and compares it to
// the stored value.
func (c *ChainEngine) VerifyImmutableHash(e *JournalEntry) bool {
	expected := c.ImmutableHash(e)
	return hmac.Equal([]byte(expected), []byte(e.ImmutableHash))
}
