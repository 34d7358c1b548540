// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"context"
	"slices"
)

// SkippedResolveCall marks a plugin that must not be consulted again for one
// specifier/importer pair during an in-flight resolution.
type SkippedResolveCall struct {
	Plugin    PluginIdx
	Specifier string
	Importer  string
}

// skipFrame is one immutable entry of the skip stack. Frames live in the
// context.Context of a single resolution call, so concurrent calls into the same
// plugin never share a stack and popping happens when the derived context goes out
// of scope.
type skipFrame struct {
	call   SkippedResolveCall
	parent *skipFrame
	depth  int
}

type skipKey struct{}

func skipTop(ctx context.Context) *skipFrame {
	f, _ := ctx.Value(skipKey{}).(*skipFrame)
	return f
}

// withSkipped returns a child context with calls pushed onto the skip stack.
func withSkipped(ctx context.Context, calls ...SkippedResolveCall) context.Context {
	if len(calls) == 0 {
		return ctx
	}
	top := skipTop(ctx)
	for _, c := range calls {
		depth := 1
		if top != nil {
			depth = top.depth + 1
		}
		top = &skipFrame{call: c, parent: top, depth: depth}
	}
	return context.WithValue(ctx, skipKey{}, top)
}

// SkipDepth returns the number of skip entries carried by ctx.
func SkipDepth(ctx context.Context) int {
	if top := skipTop(ctx); top != nil {
		return top.depth
	}
	return 0
}

// SkippedResolveCalls returns the skip stack carried by ctx, oldest entry first.
func SkippedResolveCalls(ctx context.Context) []SkippedResolveCall {
	var calls []SkippedResolveCall
	for f := skipTop(ctx); f != nil; f = f.parent {
		calls = append(calls, f.call)
	}
	slices.Reverse(calls)
	return calls
}

// IsSkipped reports whether the resolve-id chain must bypass plugin idx for this
// specifier and importer.
func IsSkipped(ctx context.Context, idx PluginIdx, specifier, importer string) bool {
	for f := skipTop(ctx); f != nil; f = f.parent {
		if f.call.Plugin == idx && f.call.Specifier == specifier && f.call.Importer == importer {
			return true
		}
	}
	return false
}
