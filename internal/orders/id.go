package orders

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const maxIDAttempts = 16

// IDGenerator mints ids shaped <prefix>-<8 time digits><4 random digits>.
type IDGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

// NewIDGenerator returns a generator; nil now/intn fall back to the wall
// clock and math/rand/v2.
func NewIDGenerator(prefix string, now func() time.Time, intn func(n int) int) *IDGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "ORD"
	}
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &IDGenerator{prefix: prefix, now: now, intn: intn}
}

// Next returns an id for which taken reports false.
func (g *IDGenerator) Next(taken func(id string) bool) (string, error) {
	for range maxIDAttempts {
		id := fmt.Sprintf("%s-%08d%04d", g.prefix, g.now().UnixMilli()%100_000_000, g.intn(10_000))
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not mint a unique order id after %d attempts", maxIDAttempts)
}
