package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageMeter(t *testing.T) {
	m := NewUsageMeter()
	m.Record("gemini-2.5-pro", 1_000_000, 0)
	m.Record("unknown-model", 10, 5)

	tokens, cost := m.Totals()
	assert.Equal(t, int64(1_000_015), tokens)
	assert.InDelta(t, 7.0, cost, 1e-9)
}

func TestUsageMeter_Concurrent(t *testing.T) {
	m := NewUsageMeter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record("gemini-2.5-flash-lite", 100, 100)
		}()
	}
	wg.Wait()
	tokens, _ := m.Totals()
	assert.Equal(t, int64(10_000), tokens)
}
