// Package idgenerator hands out sequence numbers: request numbers in the
// client's debug log and connection ids in the loopback test server.
package idgenerator

import "sync/atomic"

// IdGenerator produces increasing uint32 ids. The first Id() returns the
// start value plus one. It is safe for concurrent use.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first id is startValue+1.
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next id.
func (g *IdGenerator) Id() uint32 {
	return g.id.Add(1)
}

// Last returns the most recently issued id, or the start value if none has
// been issued yet.
func (g *IdGenerator) Last() uint32 {
	return g.id.Load()
}
