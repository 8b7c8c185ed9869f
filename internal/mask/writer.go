package mask

import (
	"bytes"
	"io"
)

type maskedWriter struct {
	w     io.Writer
	store *SecretStore
}

func (w *maskedWriter) Write(b []byte) (int, error) {
	n := len(b)
	secrets, placeholder := w.store.snapshot()

	for _, secret := range secrets {
		b = bytes.ReplaceAll(b, secret, placeholder)
	}

	if _, err := w.w.Write(b); err != nil {
		return 0, err
	}

	return n, nil
}
