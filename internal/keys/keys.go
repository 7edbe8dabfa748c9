// Package keys binds DASH content-protection key ids to the content keys
// supplied per episode. Binding fails closed: an encrypted representation
// with no matching key aborts the episode, because fetching segments that
// cannot be decrypted produces output indistinguishable from corruption.
package keys

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ResolutionError reports an encrypted representation whose key id has no
// entry in the episode's key set. It must never be downgraded to "clear
// content" by the caller.
type ResolutionError struct {
	RepID string
	KeyID string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("representation %q: no key for key id %q", e.RepID, e.KeyID)
}

// Normalize canonicalizes a key id for lookup: lowercase hex with the UUID
// dashes manifests like to add removed.
func Normalize(kid string) string {
	return strings.ToLower(strings.ReplaceAll(kid, "-", ""))
}

// Set holds the content keys available for one episode, indexed by
// normalized key id. It is read-only after construction.
type Set struct {
	byKID map[string][]byte
}

// NewSet decodes a raw key-id → hex-key mapping, as loaded from the playlist
// file, into a Set. Decoding here rather than at bind time means a typo in
// the playlist fails the episode before any segment is fetched.
func NewSet(raw map[string]string) (*Set, error) {
	byKID := make(map[string][]byte, len(raw))
	for kid, keyHex := range raw {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decode key for key id %q: %w", kid, err)
		}
		norm := Normalize(kid)
		if _, exists := byKID[norm]; exists {
			return nil, fmt.Errorf("duplicate key id %q after normalization", norm)
		}
		byKID[norm] = key
	}
	return &Set{byKID: byKID}, nil
}

// Bind returns the content key for the representation's declared key id.
// An empty key id means the content is clear and binds to nil; downstream
// skips decryption. A declared key id missing from the set is a
// *ResolutionError.
func (s *Set) Bind(repID, keyID string) ([]byte, error) {
	if keyID == "" {
		return nil, nil
	}
	key, found := s.byKID[Normalize(keyID)]
	if !found {
		return nil, &ResolutionError{RepID: repID, KeyID: keyID}
	}
	return key, nil
}

// Len reports how many keys the set holds.
func (s *Set) Len() int { return len(s.byKID) }
