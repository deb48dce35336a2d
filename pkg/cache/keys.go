package cache

// TraceKeyOpts are the tracer settings that affect a fragment.
type TraceKeyOpts struct {
	Tracer    string `json:"tracer"`
	Threshold uint8  `json:"threshold"`
	TurdSize  int    `json:"turd_size"`
}

// Keyer derives cache keys.
type Keyer interface {
	// TraceKey returns the key of the fragment traced from a mask whose
	// content hash is contentHash.
	TraceKey(contentHash string, opts TraceKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TraceKey implements Keyer.
func (DefaultKeyer) TraceKey(contentHash string, opts TraceKeyOpts) string {
	return hashKey("trace", contentHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, so that several atlases can share
// one Redis instance without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TraceKey generates a prefixed trace key.
func (k *ScopedKeyer) TraceKey(contentHash string, opts TraceKeyOpts) string {
	return k.prefix + k.inner.TraceKey(contentHash, opts)
}
