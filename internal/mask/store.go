package mask

import (
	"io"
	"sync"
)

var DefaultMask = []byte("***")

// SecretStore collects every secret value injected into a step
// environment so captured output can be scrubbed before it reaches a
// report or the terminal.
type SecretStore struct {
	mu          sync.Mutex
	placeholder []byte
	secrets     [][]byte
}

func NewSecretStore(placeholder []byte) *SecretStore {
	if placeholder == nil {
		placeholder = DefaultMask
	}

	return &SecretStore{
		placeholder: placeholder,
	}
}

func (s *SecretStore) AddSecrets(secrets ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, secret := range secrets {
		if len(secret) == 0 {
			continue
		}

		s.secrets = append(s.secrets, secret)
	}
}

func (s *SecretStore) snapshot() ([][]byte, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.secrets, s.placeholder
}

// Writer wraps w so any registered secret value is replaced by the
// placeholder before the bytes are forwarded.
func (s *SecretStore) Writer(w io.Writer) io.Writer {
	return &maskedWriter{
		w:     w,
		store: s,
	}
}
