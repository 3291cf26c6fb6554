package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// GetResourceNamespace returns the namespace the gateway is scoped to,
// read once from the ambient environment rather than a process-wide
// context global, per spec's "pass it explicitly" design note.
func GetResourceNamespace() string {
	if ns := os.Getenv("ARK_NAMESPACE"); ns != "" {
		return ns
	}
	return "default"
}

// RandomHexSuffix returns n lowercase hex characters from a
// cryptographically-random source, used for Query/task name suffixes.
func RandomHexSuffix(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("utils: failed to read random bytes: %w", err))
	}
	return hex.EncodeToString(buf)[:n]
}

// IsNotFound reports whether err represents a registry 404.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}
