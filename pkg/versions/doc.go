// Package versions orders a project's version slugs and answers whether a
// given version is the highest one, for the "you are reading an old
// version" banner. It also triggers documentation builds.
//
// Slugs are parsed best-effort: "1.10", "v2.0.1", "1.0rc1" and "3.0-beta.2"
// parse; "latest", "stable" and branch names do not and never win.
//
//	resolver := versions.NewResolver(store, queue, links, metrics)
//	cmp, err := resolver.CompareToBase(ctx, "pip", "1.0")
//	// cmp.IsHighest == false when 2.0 is active
//
// Comparison fails open: anything wrong with the base version yields
// IsHighest == true. Only an unknown project is an error.
package versions
