// Package config holds the explicit, caller-constructed configuration that
// replaces the source implementation's process-wide debug toggles. The
// tree, cluster and query entry points take a *Config instead of reading
// package globals; internal/bitvector does not import this package and
// receives the RRR parameters as plain arguments.
package config

// Option configures a Config during construction. This follows the same
// functional-options shape the teacher uses for its rebalancing knobs.
type Option func(*Config)

// Config bundles every tunable the core algorithms consult.
type Config struct {
	// RRRBlockSize is the RRR succinct block size, ≤255. Stored in the
	// container header per vector; a mismatch against these constants on
	// read is fatal (§4.1).
	RRRBlockSize uint8
	// RRRRankSamplePeriod is the RRR rank sample period, ≤255; 0 means
	// the default of 32.
	RRRRankSamplePeriod uint8
	// Simplify enables replacing a finalized all-zero or all-one vector
	// with the degenerate AllZeros/AllOnes variant before saving (§4.3).
	Simplify bool
	// CullZ is the Z-score used to derive a culling threshold from the
	// distribution of active-determined ratios when the caller doesn't
	// supply one directly (§4.4).
	CullZ float64
	// CountedMode disables the Present-threshold short-circuit during
	// query traversal so every position is resolved, needed for
	// sort-by-count and adjusted-count outputs (§4.5).
	CountedMode bool
	// DedupPositions deduplicates a query's hash positions before
	// traversal begins (§4.5 step 1).
	DedupPositions bool
	// ParallelSiblingThreshold is the minimum number of children a node
	// must have before its sibling subtrees are descended concurrently via
	// errgroup; the size of the active query batch is not considered. Zero
	// disables parallel descent entirely.
	ParallelSiblingThreshold int
}

// DefaultRRRBlockSize and DefaultRankSamplePeriod match the values spec.md
// §4.1 calls out by name.
const (
	DefaultRRRBlockSize      uint8   = 255
	DefaultRankSamplePeriod  uint8   = 32
	DefaultCullZ             float64 = 2.0
	DefaultParallelThreshold int     = 0
)

// New builds a Config with the spec's defaults, then applies opts in order.
func New(opts ...Option) *Config {
	c := &Config{
		RRRBlockSize:             DefaultRRRBlockSize,
		RRRRankSamplePeriod:      DefaultRankSamplePeriod,
		Simplify:                 true,
		CullZ:                    DefaultCullZ,
		CountedMode:              false,
		DedupPositions:           false,
		ParallelSiblingThreshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRRRBlockSize overrides the RRR block size.
func WithRRRBlockSize(n uint8) Option {
	return func(c *Config) { c.RRRBlockSize = n }
}

// WithRankSamplePeriod overrides the RRR rank sample period.
func WithRankSamplePeriod(n uint8) Option {
	return func(c *Config) { c.RRRRankSamplePeriod = n }
}

// WithSimplify toggles all-zero/all-one replacement on save.
func WithSimplify(enabled bool) Option {
	return func(c *Config) { c.Simplify = enabled }
}

// WithCullZ overrides the culling Z-score.
func WithCullZ(z float64) Option {
	return func(c *Config) { c.CullZ = z }
}

// WithCountedMode toggles counted (full k-mer count) query mode.
func WithCountedMode(enabled bool) Option {
	return func(c *Config) { c.CountedMode = enabled }
}

// WithDedupPositions toggles position deduplication during query prep.
func WithDedupPositions(enabled bool) Option {
	return func(c *Config) { c.DedupPositions = enabled }
}

// WithParallelSiblingThreshold sets the minimum fan-out before sibling
// subtrees are traversed concurrently. 0 disables parallel descent.
func WithParallelSiblingThreshold(n int) Option {
	return func(c *Config) { c.ParallelSiblingThreshold = n }
}
