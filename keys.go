package pagevault

import (
	"crypto/rand"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyringService = "pagevault"
	keySize        = chacha20poly1305.KeySize
)

// loadOrCreateKey obtains the 32-byte store secret from the platform
// credential facility, generating and saving a fresh one on first use.
// The secret is keyed by the absolute store location and is never written
// anywhere under that location.
func loadOrCreateKey(dir string, opt Options) ([]byte, error) {
	if opt.Key != nil {
		if len(opt.Key) != keySize {
			return nil, storeErrf(ErrKey, nil, "explicit key must be %d bytes, got %d", keySize, len(opt.Key))
		}
		return opt.Key, nil
	}

	cfg := keyring.Config{ServiceName: keyringService}
	if opt.Keyring != nil {
		cfg = *opt.Keyring
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, storeErrf(ErrKey, err, "cannot open credential store")
	}

	name, err := keyItemName(dir)
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(name)
	if err == keyring.ErrKeyNotFound {
		return createKey(ring, name)
	} else if err != nil {
		return nil, storeErrf(ErrKey, err, "cannot load key for %s", name)
	}
	if len(item.Data) != keySize {
		return nil, storeErrf(ErrKey, nil, "stored key for %s has %d bytes, want %d", name, len(item.Data), keySize)
	}
	return item.Data, nil
}

func createKey(ring keyring.Keyring, name string) ([]byte, error) {
	key := make([]byte, keySize)
	_, err := rand.Read(key)
	ensure(err)

	err = ring.Set(keyring.Item{
		Key:   name,
		Data:  key,
		Label: "PageVault store key",
	})
	if err != nil {
		return nil, storeErrf(ErrKey, err, "cannot save key for %s", name)
	}
	return key, nil
}

func keyItemName(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", storeErrf(ErrKey, err, "cannot resolve store location %s", dir)
	}
	return "store:" + abs, nil
}
