// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin

import (
	"github.com/samber/oops"
)

// HookKind identifies one extension point of the build pipeline.
type HookKind int

// Hook kinds, in pipeline order.
const (
	HookBuildStart HookKind = iota
	HookResolveID
	HookResolveDynamicImport
	HookLoad
	HookTransform
	HookModuleParsed
	HookBuildEnd
	HookRenderStart
	HookBanner
	HookFooter
	HookIntro
	HookOutro
	HookRenderChunk
	HookAugmentChunkHash
	HookRenderError
	HookGenerateBundle
	HookWriteBundle
	HookCloseBundle
	HookWatchChange
	HookCloseWatcher
	HookTransformAST

	hookKindCount
)

var hookKindNames = [hookKindCount]string{
	HookBuildStart:           "build-start",
	HookResolveID:            "resolve-id",
	HookResolveDynamicImport: "resolve-dynamic-import",
	HookLoad:                 "load",
	HookTransform:            "transform",
	HookModuleParsed:         "module-parsed",
	HookBuildEnd:             "build-end",
	HookRenderStart:          "render-start",
	HookBanner:               "banner",
	HookFooter:               "footer",
	HookIntro:                "intro",
	HookOutro:                "outro",
	HookRenderChunk:          "render-chunk",
	HookAugmentChunkHash:     "augment-chunk-hash",
	HookRenderError:          "render-error",
	HookGenerateBundle:       "generate-bundle",
	HookWriteBundle:          "write-bundle",
	HookCloseBundle:          "close-bundle",
	HookWatchChange:          "watch-change",
	HookCloseWatcher:         "close-watcher",
	HookTransformAST:         "transform-ast",
}

// HookKinds returns every hook kind in pipeline order.
func HookKinds() []HookKind {
	kinds := make([]HookKind, hookKindCount)
	for i := range kinds {
		kinds[i] = HookKind(i)
	}
	return kinds
}

// Valid reports whether k is a known hook kind.
func (k HookKind) Valid() bool {
	return k >= 0 && k < hookKindCount
}

// String returns the kebab-case name of the hook kind.
func (k HookKind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return hookKindNames[k]
}

// ParseHookKind returns the hook kind with the given kebab-case name.
func ParseHookKind(name string) (HookKind, error) {
	for i, n := range hookKindNames {
		if n == name {
			return HookKind(i), nil
		}
	}
	return 0, oops.Code(CodeUnknownHookKind).
		With("hook", name).
		Errorf("unknown hook kind %q", name)
}

// Order is a plugin's declared position preference for one hook kind.
type Order int

// Order preferences. The zero value is OrderNormal.
const (
	OrderNormal Order = iota
	OrderPre
	OrderPost
)

// String returns "pre", "normal" or "post".
func (o Order) String() string {
	switch o {
	case OrderPre:
		return "pre"
	case OrderPost:
		return "post"
	default:
		return "normal"
	}
}

// ParseOrder parses "pre", "post", "normal" or the empty string.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "normal":
		return OrderNormal, nil
	case "pre":
		return OrderPre, nil
	case "post":
		return OrderPost, nil
	default:
		return OrderNormal, oops.Code(CodeInvalidOrder).
			With("order", s).
			Errorf("order must be 'pre', 'normal' or 'post', got %q", s)
	}
}

// HookMeta is optional metadata a plugin attaches to one of its hooks.
type HookMeta struct {
	Order Order
}
