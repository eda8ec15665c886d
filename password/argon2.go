package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minSecretBytes        = 10
	algorithmID           = "argon2id"

	// DefaultMaxSecretBytes caps secret length when Config.MaxSecretBytes is zero.
	DefaultMaxSecretBytes = 1024
)

var (
	// ErrSecretTooShort is returned by Hash for secrets under 10 bytes.
	ErrSecretTooShort = errors.New("secret must be at least 10 bytes")
	// ErrSecretTooLong is returned by Hash and Verify before any key derivation.
	ErrSecretTooLong = errors.New("secret exceeds maximum length")
	// ErrInvalidHash is returned when a stored hash is not a supported PHC string.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MaxSecretBytes int
}

// DefaultConfig returns the production cost parameters.
func DefaultConfig() Config {
	return Config{
		Memory:         64 * 1024,
		Time:           3,
		Parallelism:    2,
		SaltLength:     16,
		KeyLength:      32,
		MaxSecretBytes: DefaultMaxSecretBytes,
	}
}

// Argon2 hashes and verifies secrets. It is safe for concurrent use.
type Argon2 struct {
	config Config

	dummyOnce sync.Once
	dummyHash string
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxSecretBytes == 0 {
		cfg.MaxSecretBytes = DefaultMaxSecretBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt.
// Secrets are hashed as raw bytes, without Unicode normalization.
func (a *Argon2) Hash(secret string) (string, error) {
	if len(secret) < minSecretBytes {
		return "", ErrSecretTooShort
	}
	if len(secret) > a.config.MaxSecretBytes {
		return "", ErrSecretTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	return a.encode(secret, salt), nil
}

func (a *Argon2) encode(secret string, salt []byte) string {
	key := argon2.IDKey(
		[]byte(secret),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	)
}

// Verify reports whether secret matches encodedHash, using the parameters
// recorded in the hash. The comparison is constant time.
func (a *Argon2) Verify(secret string, encodedHash string) (bool, error) {
	if len(secret) > a.config.MaxSecretBytes {
		return false, ErrSecretTooLong
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// VerifyDummy burns one verification against a fixed hash built with the
// current parameters. Login calls it for unknown identifiers so both failure
// paths cost the same.
func (a *Argon2) VerifyDummy(secret string) {
	a.dummyOnce.Do(func() {
		salt := make([]byte, a.config.SaltLength)
		a.dummyHash = a.encode("tokenguard-dummy-secret", salt)
	})
	if len(secret) > a.config.MaxSecretBytes {
		secret = secret[:a.config.MaxSecretBytes]
	}
	_, _ = a.Verify(secret, a.dummyHash)
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	switch {
	case a.config.Memory > parsed.memory,
		a.config.Time > parsed.time,
		a.config.Parallelism > parsed.parallelism,
		a.config.KeyLength != parsed.keyLength:
		return true, nil
	}
	return false, nil
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}

	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	versionPart, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	phc := &parsedPHC{}
	if err := phc.parseParams(parts[3]); err != nil {
		return nil, err
	}

	if phc.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid salt encoding")
	}
	if len(phc.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt length")
	}

	if phc.hash, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("invalid hash encoding")
	}
	if len(phc.hash) < int(minKeyLength) {
		return nil, errors.New("invalid hash length")
	}
	phc.keyLength = uint32(len(phc.hash))

	return phc, nil
}

// parseParams reads the "m=..,t=..,p=.." segment. Each key must appear
// exactly once and meet the package minimums.
func (p *parsedPHC) parseParams(segment string) error {
	pairs := strings.Split(segment, ",")
	if len(pairs) != 3 {
		return errors.New("invalid parameter format")
	}

	seen := make(map[string]bool, 3)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[key] {
			return errors.New("invalid parameter entry")
		}
		seen[key] = true

		var bits int
		var floor uint64
		switch key {
		case "m":
			bits, floor = 32, uint64(minMemoryKB)
		case "t":
			bits, floor = 32, uint64(minTimeCost)
		case "p":
			bits, floor = 8, uint64(minParallelism)
		default:
			return errors.New("unsupported parameter")
		}

		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v < floor {
			return fmt.Errorf("invalid %s parameter", key)
		}

		switch key {
		case "m":
			p.memory = uint32(v)
		case "t":
			p.time = uint32(v)
		case "p":
			p.parallelism = uint8(v)
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{cfg.Memory >= minMemoryKB, "password memory must be >= 8192 KB"},
		{cfg.Time >= minTimeCost, "password time must be >= 1"},
		{cfg.Parallelism >= minParallelism, "password parallelism must be >= 1"},
		{cfg.SaltLength >= minSaltLength, "password salt length must be >= 16"},
		{cfg.KeyLength >= minKeyLength, "password key length must be >= 16"},
		{cfg.MaxSecretBytes >= minSecretBytes, "password max secret bytes must be >= 10"},
	}
	for _, c := range checks {
		if !c.ok {
			return errors.New(c.msg)
		}
	}
	return nil
}
