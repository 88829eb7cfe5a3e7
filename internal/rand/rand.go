// Package rand generates random content for tests.
package rand

import (
	"math/rand"
	"sync"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	once sync.Once
	mu   sync.Mutex
	gen  *rand.Rand
)

func source() *rand.Rand {
	once.Do(func() {
		gen = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec
	})
	return gen
}

// Bytes returns n random bytes
func Bytes(n int) []byte {
	buf := make([]byte, n)
	mu.Lock()
	_, _ = source().Read(buf)
	mu.Unlock()
	return buf
}

// LetterString returns a random string of n characters in the [a-z0-9] range
func LetterString(n int) string {
	buf := Bytes(n)
	for i, b := range buf {
		buf[i] = letters[int(b)%len(letters)]
	}
	return string(buf)
}
