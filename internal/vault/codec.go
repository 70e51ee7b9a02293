package vault

import (
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// SecretCodec stores strings encrypted with key, which must be 16, 24 or 32
// bytes long. Values that cannot be decrypted with key parse as the empty
// string.
//
// Every Format call uses a fresh nonce, so storing the same secret twice
// produces different text. Do not use it with settings.GetOr: GetOr rewrites
// the default slot on every call, so the entry would never read as unmodified.
// Use settings.Set and settings.TryGet instead.
func SecretCodec(key []byte) (settings.Codec[string], error) {
	if _, err := newGCM(key); err != nil {
		return nil, err
	}
	return settings.NewCodec("secret", "",
		func(plain string) string {
			// The key is valid, so only a failing random source ends up here.
			sealed, err := Encrypt(plain, key)
			if err != nil {
				return ""
			}
			return sealed
		},
		func(s string) (string, error) {
			return Decrypt(s, key)
		}), nil
}
