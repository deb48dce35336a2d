// Package hierarchy rebuilds the anatomical region tree from its flat,
// hand-authored table form.
//
// # Table Encoding
//
// Each row of the hierarchy table carries a dash-separated positional path in
// its index column. "0" is the first top-level node, "0-2" the third child of
// that node, "0-2-1" the second child of "0-2", and so on:
//
//	index   name                abbreviation  hasSides
//	0       Forebrain
//	0-0     Hypothalamus        HY            Y
//	0-1     Thalamus            TH            Y
//	1       Ventricular system  VS
//
// Rows must be listed in pre-order: every proper prefix of a row's path names
// a node that already exists, and the final component names the next free
// child slot under that parent. [Build] validates both conditions and rejects
// the table otherwise, so a misordered row is reported rather than silently
// attached to the wrong parent.
//
// # Output
//
// [Build] returns a synthetic root ("All regions") whose children are the
// top-level rows. The JSON form of [Node] is the shape consumed by the atlas
// viewer, including its per-node checked/open UI state.
//
// [ToDOT] and [RenderSVG] draw the tree with Graphviz for inspecting a
// hierarchy table before running a full build.
package hierarchy
