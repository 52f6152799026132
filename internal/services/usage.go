package services

import "sync"

type tokenRate struct {
	input  float64
	output float64
}

// Prices per million tokens.
var ratesPerMillion = map[string]tokenRate{
	"gemini-2.5-flash-lite": {input: 0.125, output: 0.375},
	"gemini-2.5-flash":      {input: 0.35, output: 1.05},
	"gemini-2.5-pro":        {input: 7.00, output: 21.00},
}

// UsageMeter accumulates token counts and estimated spend across all jobs.
type UsageMeter struct {
	mu          sync.Mutex
	totalTokens int64
	cost        float64
}

func NewUsageMeter() *UsageMeter { return &UsageMeter{} }

// Record adds one call's token counts. Models without a known price count
// toward tokens but not cost.
func (m *UsageMeter) Record(model string, inputTokens, outputTokens int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalTokens += inputTokens + outputTokens
	if r, ok := ratesPerMillion[model]; ok {
		m.cost += float64(inputTokens)/1_000_000*r.input + float64(outputTokens)/1_000_000*r.output
	}
}

// Totals returns the tokens used and the estimated cost in USD.
func (m *UsageMeter) Totals() (int64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalTokens, m.cost
}
