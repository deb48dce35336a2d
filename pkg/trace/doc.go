// Package trace converts bitmap masks into SVG path data.
//
// The atlas build treats tracing as a capability behind the [Tracer]
// interface. [ContourTracer] is the built-in implementation: it thresholds
// the mask (dark pixels are the region, as in black-on-white potrace input),
// follows the pixel-edge boundary of every connected component and hole, and
// emits one closed axis-aligned subpath per boundary. Boundaries enclosing no
// more than TurdSize pixels are dropped as speckle noise.
//
// [CachingTracer] memoizes any Tracer by content hash so that unchanged masks
// are not re-traced on the next build.
//
// A [Fragment] whose path data is empty has no drawable area; the compositor
// discards it.
package trace
