// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tessera-build/tessera/internal/module"
	"github.com/tessera-build/tessera/internal/plugin"
)

// tableOf builds a table whose ids all carry the generation n, so a reader can tell a
// mixed view from a complete one.
func tableOf(n, size int) *module.Table {
	infos := make([]module.Info, size)
	for i := range infos {
		infos[i] = module.Info{ID: fmt.Sprintf("g%d/m%d", n, i)}
	}
	return module.NewTable(infos)
}

var _ = Describe("Driver shared build state", func() {
	var d *plugin.Driver

	BeforeEach(func() {
		plugins := make([]plugin.Plugin, 8)
		for i := range plugins {
			plugins[i] = named(fmt.Sprintf("p%d", i))
		}
		var err error
		d, err = plugin.New(plugins, &mockResolver{}, &mockEmitter{}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("module snapshot replacement", func() {
		It("never exposes a partially replaced snapshot to concurrent readers", func() {
			const rounds, size = 50, 32
			var wg sync.WaitGroup
			errs := make(chan string, d.Len()*rounds)

			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for n := 1; n <= rounds; n++ {
					Expect(d.ReplaceModuleSnapshot(tableOf(n, size))).To(Succeed())
				}
			}()

			for i := range d.Len() {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					pctx := d.Context(plugin.PluginIdx(i))
					for range rounds {
						snap, err := pctx.CurrentModuleSnapshot()
						Expect(err).NotTo(HaveOccurred())
						if snap.IsUnset() {
							continue
						}
						prefix := fmt.Sprintf("g%d/", snap.Generation())
						for _, id := range snap.Table().IDs() {
							if len(id) < len(prefix) || id[:len(prefix)] != prefix {
								errs <- id
							}
						}
					}
				}()
			}
			wg.Wait()
			close(errs)

			Expect(errs).To(BeEmpty())
			snap, err := d.ModuleSnapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Generation()).To(Equal(uint64(rounds)))
		})
	})

	Describe("watch set", func() {
		It("deduplicates paths added from every context in parallel", func() {
			var wg sync.WaitGroup
			for i := range d.Len() {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					pctx := d.Context(plugin.PluginIdx(i))
					for j := range 100 {
						Expect(pctx.WatchFile(fmt.Sprintf("src/%d.js", j))).To(Succeed())
					}
				}()
			}
			wg.Wait()

			Expect(d.WatchFiles().Len()).To(Equal(100))
		})

		It("starts empty after a rebuild", func() {
			Expect(d.Context(3).WatchFile("vite.config.ts")).To(Succeed())

			next, err := d.Rebuild()
			Expect(err).NotTo(HaveOccurred())

			Expect(next.Context(3).WatchFiles()).To(BeEmpty())
			Expect(d.Context(3).WatchFiles()).To(ConsistOf("vite.config.ts"))
		})
	})

	Describe("order tables", func() {
		It("are read concurrently without changing", func() {
			want := make(map[plugin.HookKind][]plugin.PluginIdx)
			for _, kind := range plugin.HookKinds() {
				want[kind] = append([]plugin.PluginIdx(nil), d.Order(kind)...)
			}

			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for _, kind := range plugin.HookKinds() {
						var got []plugin.PluginIdx
						for e := range d.OrderedPlugins(d.Order(kind)) {
							got = append(got, e.Idx)
						}
						Expect(got).To(Equal(want[kind]))
					}
				}()
			}
			wg.Wait()
		})
	})
})
