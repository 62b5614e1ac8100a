package authtest

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"
)

const (
	challengeIDSize     = 16
	challengeSecretSize = 24
	challengeTokenSize  = challengeIDSize + challengeSecretSize
)

type challengeID [challengeIDSize]byte

// challengeEntry is one outstanding login challenge. The secret never leaves
// the wire token; only its digest is kept.
type challengeEntry struct {
	userID     int64
	secretHash [sha256.Size]byte
	expiresAt  time.Time
	attempts   int
}

// challengeStore issues and redeems one-shot challenge tokens of the form
// base64url(id[16] || secret[24]). A token dies on successful redemption, on
// expiry, or after maxAttempts failed codes.
type challengeStore struct {
	mu          sync.Mutex
	entries     map[challengeID]*challengeEntry
	maxAttempts int
	issued      int
}

func newChallengeStore(maxAttempts int) *challengeStore {
	return &challengeStore{
		entries:     make(map[challengeID]*challengeEntry),
		maxAttempts: maxAttempts,
	}
}

func (cs *challengeStore) issue(userID int64, now time.Time, ttl time.Duration) (string, error) {
	var raw [challengeTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}

	var id challengeID
	copy(id[:], raw[:challengeIDSize])

	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.entries[id] = &challengeEntry{
		userID:     userID,
		secretHash: sha256.Sum256(raw[challengeIDSize:]),
		expiresAt:  now.Add(ttl),
	}
	cs.issued++

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// resolve validates the token shape, lookup, expiry and secret. It does not
// consume the entry; a bad code afterwards goes through recordFailure.
func (cs *challengeStore) resolve(token string, now time.Time) (int64, bool) {
	id, secret, ok := splitToken(token)
	if !ok {
		return 0, false
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	entry, ok := cs.entries[id]
	if !ok {
		return 0, false
	}
	if now.After(entry.expiresAt) {
		delete(cs.entries, id)
		return 0, false
	}

	digest := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(digest[:], entry.secretHash[:]) != 1 {
		return 0, false
	}

	return entry.userID, true
}

// recordFailure counts a wrong code against the challenge and kills it at
// the attempt cap.
func (cs *challengeStore) recordFailure(token string) {
	id, _, ok := splitToken(token)
	if !ok {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	entry, ok := cs.entries[id]
	if !ok {
		return
	}
	entry.attempts++
	if entry.attempts >= cs.maxAttempts {
		delete(cs.entries, id)
	}
}

// consume deletes the entry; the one-shot point of the whole store.
func (cs *challengeStore) consume(token string) {
	id, _, ok := splitToken(token)
	if !ok {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.entries, id)
}

func (cs *challengeStore) issuedCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.issued
}

func (cs *challengeStore) pendingCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.entries)
}

func splitToken(token string) (challengeID, []byte, bool) {
	var id challengeID

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != challengeTokenSize {
		return id, nil, false
	}

	copy(id[:], raw[:challengeIDSize])
	return id, raw[challengeIDSize:], true
}
