package infra

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

const (
	keyFileName = "store.key"
	keySize     = 32 // 256-bit SQLCipher key

	// KeyEnvVar supplies the store key directly, hex-encoded.
	KeyEnvVar = "SHIELDMON_STORE_KEY"
)

// FileKeyProvider implements domain.KeyProvider using an owner-only file in
// the data directory.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{
		keyPath: filepath.Join(dataDir, keyFileName),
	}
}

// GetKey reads the key file. A key readable by group or others is refused.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	info, err := os.Stat(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat key file: %w", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		return nil, fmt.Errorf("key file %s is accessible by other users (mode %v)", p.keyPath, info.Mode().Perm())
	}

	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(string(encoded))
}

// StoreKey writes the key atomically with 0600 permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := atomicWriteFile(p.keyPath, []byte(hex.EncodeToString(key))); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// EnvKeyProvider reads the key from KeyEnvVar. It cannot store keys.
type EnvKeyProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvKeyProvider creates a provider over the process environment.
func NewEnvKeyProvider() *EnvKeyProvider {
	return &EnvKeyProvider{lookup: os.LookupEnv}
}

func (p *EnvKeyProvider) GetKey() ([]byte, error) {
	v, ok := p.lookup(KeyEnvVar)
	if !ok {
		return nil, fmt.Errorf("%s not set", KeyEnvVar)
	}
	return decodeKey(v)
}

func (p *EnvKeyProvider) StoreKey(key []byte) error {
	return fmt.Errorf("key from %s is read-only", KeyEnvVar)
}

func (p *EnvKeyProvider) KeyExists() bool {
	_, ok := p.lookup(KeyEnvVar)
	return ok
}

// ResolveKeyProvider prefers the environment key over the data directory key file.
func ResolveKeyProvider(dataDir string) domain.KeyProvider {
	if env := NewEnvKeyProvider(); env.KeyExists() {
		return env
	}
	return NewFileKeyProvider(dataDir)
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

// GenerateKey creates a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// EnsureKey generates and stores a key if one doesn't exist.
// Returns the key (existing or newly generated).
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// atomicWriteFile writes data to a per-process temp file and renames it over path.
func atomicWriteFile(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

var (
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*EnvKeyProvider)(nil)
)
