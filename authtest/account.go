package authtest

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters sized for test turnaround, not production hardening.
const (
	hashMemoryKB    uint32 = 8 * 1024
	hashTime        uint32 = 1
	hashParallelism uint8  = 1
	hashSaltLength  uint32 = 16
	hashKeyLength   uint32 = 32
	algorithmID            = "argon2id"
)

// backupCodeAlphabet matches the backend's unambiguous charset: no I, O, 0, 1.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const backupCodeLength = 8

// Account is the assertable view of a seeded account. TOTPSecret is exposed
// so tests can mint valid codes; the serving path never reads this copy.
type Account struct {
	ID                int64
	Email             string
	Username          string
	TwoFactorEnabled  bool
	TOTPSecret        string
	BackupTokensCount int
	LastUsedAt        *time.Time
}

// account is the mutable server-side record. All access goes through the
// Server mutex.
type account struct {
	id           int64
	email        string
	username     string
	passwordHash string

	twoFactorEnabled bool
	totpSecret       string
	pendingSecret    string
	backupCodes      []*backupCode
	lastUsedAt       *time.Time
}

// backupCode keeps the sha256 digest for verification and the plaintext for
// test accessors only.
type backupCode struct {
	hash  [sha256.Size]byte
	plain string
	used  bool
}

func (a *account) view() Account {
	out := Account{
		ID:                a.id,
		Email:             a.email,
		Username:          a.username,
		TwoFactorEnabled:  a.twoFactorEnabled,
		TOTPSecret:        a.totpSecret,
		BackupTokensCount: a.backupTokensRemaining(),
	}
	if a.lastUsedAt != nil {
		t := *a.lastUsedAt
		out.LastUsedAt = &t
	}
	return out
}

func (a *account) backupTokensRemaining() int {
	n := 0
	for _, c := range a.backupCodes {
		if !c.used {
			n++
		}
	}
	return n
}

// consumeBackupCode marks the matching unused code as spent. Digest
// comparison mirrors the backend: codes are stored hashed, checked in
// constant time, one-shot.
func (a *account) consumeBackupCode(code string) bool {
	digest := sha256.Sum256([]byte(code))
	for _, c := range a.backupCodes {
		if c.used {
			continue
		}
		if subtle.ConstantTimeCompare(digest[:], c.hash[:]) == 1 {
			c.used = true
			return true
		}
	}
	return false
}

func newBackupCodes(count int) ([]string, []*backupCode, error) {
	plain := make([]string, 0, count)
	codes := make([]*backupCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		plain = append(plain, code)
		codes = append(codes, &backupCode{hash: sha256.Sum256([]byte(code)), plain: code})
	}
	return plain, codes, nil
}

func randomBackupCode() (string, error) {
	raw := make([]byte, backupCodeLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(backupCodeLength)
	for _, r := range raw {
		b.WriteByte(backupCodeAlphabet[int(r)%len(backupCodeAlphabet)])
	}
	return b.String(), nil
}

// hashPassword produces a PHC-formatted argon2id hash.
func hashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, hashTime, hashMemoryKB, hashParallelism, hashKeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		hashMemoryKB,
		hashTime,
		hashParallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encodedHash string) bool {
	memory, timeCost, parallelism, salt, hash, err := parsePHC(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func parsePHC(encodedHash string) (memory, timeCost uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("invalid PHC format")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version || !strings.HasPrefix(parts[2], "v=") {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	for _, kv := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, 0, 0, nil, nil, errors.New("invalid PHC params")
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return 0, 0, 0, nil, nil, errors.New("invalid PHC params")
		}
		switch key {
		case "m":
			memory = uint32(n)
		case "t":
			timeCost = uint32(n)
		case "p":
			parallelism = uint8(n)
		default:
			return 0, 0, 0, nil, nil, errors.New("invalid PHC params")
		}
	}
	if memory == 0 || timeCost == 0 || parallelism == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid PHC params")
	}

	salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid salt encoding")
	}
	hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid hash encoding")
	}

	return memory, timeCost, parallelism, salt, hash, nil
}
