package lockfile

import (
	"fmt"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// token derives a short owner fingerprint from the database path and
// the process's PID. It distinguishes "this process reopened the same
// database" from "a different process is holding the lock" when a
// human inspects the lockfile body.
func token(dbPath string, alg TokenAlgorithm) string {
	seed := fmt.Sprintf("%s:%d", dbPath, pid())
	switch alg {
	case TokenBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(seed))
		return fmt.Sprintf("%016x", h.Sum(nil))
	default:
		h := xxh3.HashString(seed)
		return fmt.Sprintf("%016x", h)
	}
}
