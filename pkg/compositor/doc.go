// Package compositor turns per-region mask bitmaps into layered SVG documents.
//
// For every orientation and every layer index, the [Compositor] looks up each
// catalog region's mask at
//
//	<orientation>/parts/<region>/<NN>.<ext>
//
// traces it, styles it with the region's color, and concatenates the present
// regions (in catalog order) into one document sized to the orientation's raw
// pixel dimensions. A layer in which no region is present still yields a
// valid, empty document.
//
// Each (orientation, layer) pair is an independent task that returns an
// immutable [LayerResult]; tasks never share state. The caller merges results
// into a [PresenceIndex], whose two mappings are kept in lockstep:
//
//	region ∈ PartsInLayer[o][l]  ⇔  l ∈ LayersWithPart[o][region]
//
// A missing mask is the normal case and contributes nothing. A mask that
// exists but cannot be read or traced is recorded as a [Failure] on the task
// result; its siblings proceed. Only context cancellation aborts a run.
package compositor
