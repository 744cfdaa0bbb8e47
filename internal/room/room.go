package room

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"party-games/internal/shared"
)

// Digest is the one-way transform applied to room passwords before they are
// stored. An empty password yields an empty digest.
func Digest(password string) string {
	if password == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// PasswordOK reports whether password matches digest. Rooms without a digest
// accept anything.
func PasswordOK(digest, password string) bool {
	return digest == "" || digest == Digest(password)
}

// DisplayName falls back to "<host>'s room" when name is blank.
func DisplayName(name, hostName string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return hostName + "'s room"
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Decode unmarshals an intent payload. A malformed payload is an InvalidMove.
func Decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, shared.InvalidMove(fmt.Sprintf("malformed payload: %v", err))
	}
	return v, nil
}

// NextSeat returns the index after from in a ring of n seats whose
// eligibility is given by ok, or -1 when no seat is eligible.
func NextSeat(n, from int, ok func(i int) bool) int {
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if ok(i) {
			return i
		}
	}
	return -1
}
