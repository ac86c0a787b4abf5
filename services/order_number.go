package services

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderNumberGenerator produces PREFIX-YYYYMMDD-NNNN numbers. The random
// suffix can collide; the unique index on order_number catches that and
// the caller retries.
type OrderNumberGenerator struct {
	prefix string
	now    func() time.Time
	suffix func() int
}

func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	if prefix == "" {
		prefix = "HW"
	}
	return &OrderNumberGenerator{
		prefix: prefix,
		now:    time.Now,
		suffix: func() int { return rand.Intn(10000) },
	}
}

func (g *OrderNumberGenerator) Next() string {
	return fmt.Sprintf("%s-%s-%04d", g.prefix, g.now().Format("20060102"), g.suffix())
}
