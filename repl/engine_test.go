package repl

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

// fill drives one miss the way the external simulator would: pick a victim,
// then update with hit=false on the chosen way.
func fill(e *Engine, set int, pc, addr uint64) int {
	way := e.SelectVictim(0, set, pc, addr, Load)
	e.Update(0, set, way, pc, addr, 0, Load, false)

	return way
}

var _ = Describe("Engine", func() {
	var mockCtrl *gomock.Controller

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("victim selection", func() {
		It("should delegate to the victim finder", func() {
			vf := NewMockVictimFinder(mockCtrl)
			vf.EXPECT().FindVictim(gomock.Any()).Return(3)

			e := MakeBuilder().
				WithGeometry(8, 4).
				WithVictimFinder(vf).
				Build("LLC")

			Expect(e.SelectVictim(0, 5, 0x400, 0x1000, Load)).To(Equal(3))
		})
	})

	Context("repeated accesses to one line (Scenario A)", func() {
		It("should hit at RRPV 0 after the first access", func() {
			e := SHiPBuilder().WithGeometry(16, 4).Build("LLC")
			pc, addr := uint64(0x400100), uint64(0x8000)

			way := fill(e, 0, pc, addr)

			sig := e.Line(0, way).Signature
			lastCtr := e.shct.Predict(sig)

			for i := 0; i < 20; i++ {
				e.Update(0, 0, way, pc, addr, 0, Load, true)

				Expect(e.Line(0, way).RRPV).To(Equal(uint8(0)))
				Expect(e.Line(0, way).SeenHit).To(BeTrue())

				ctr := e.shct.Predict(sig)
				Expect(ctr).To(BeNumerically(">=", lastCtr))
				lastCtr = ctr
			}

			stats := e.Report()
			Expect(stats.Hits).To(Equal(uint64(20)))
			Expect(stats.Misses).To(Equal(uint64(1)))
		})
	})

	Context("capacity miss under identical insertion (Scenario B)", func() {
		It("should evict the first-filled line", func() {
			e := SRRIPBuilder().WithGeometry(16, 4).Build("LLC")

			ways := make([]int, 0, 4)
			for i := 0; i < 4; i++ {
				addr := uint64(0x10000 + i*0x10000)
				ways = append(ways, fill(e, 0, 0x400, addr))
			}

			Expect(ways).To(Equal([]int{0, 1, 2, 3}))

			victim := e.SelectVictim(0, 0, 0x400, 0x90000, Load)
			Expect(victim).To(Equal(0))
		})
	})

	Context("leader-set training (Scenario C)", func() {
		It("should step PSEL once per miss and then saturate", func() {
			e := DRRIPBuilder().
				WithGeometry(64, 4).
				WithPSELBits(4).
				Build("LLC")

			psel, enabled := e.PSEL()
			Expect(enabled).To(BeTrue())
			Expect(psel).To(Equal(uint32(7)))

			// Set 0 leads for policy A; each miss moves PSEL toward B.
			for k := 1; k <= 3; k++ {
				fill(e, 0, 0x400, uint64(k)*0x40000)

				psel, _ = e.PSEL()
				Expect(psel).To(Equal(uint32(7 - k)))
			}

			for k := 0; k < 30; k++ {
				fill(e, 0, 0x400, uint64(100+k)*0x40000)
			}

			psel, _ = e.PSEL()
			Expect(psel).To(Equal(uint32(0)))
		})
	})

	Context("streaming fills (Scenario D)", func() {
		It("should insert detected streams at the moderate RRPV", func() {
			e := SHiPStreamBuilder().WithGeometry(16, 4).Build("LLC")
			pc := uint64(0x400200)

			// Constant stride of one block; each access maps to a
			// different set, missing every time.
			fill(e, 1, pc, 1<<6)
			fill(e, 2, pc, 2<<6)
			way := fill(e, 3, pc, 3<<6)

			// RRPV_MAX is 7 here, SRRIP insertion 6, streams one hotter.
			Expect(e.Line(3, way).RRPV).To(Equal(uint8(5)))
		})
	})

	Context("bimodal insertion", func() {
		It("should insert far except on the rare near roll", func() {
			rng := NewMockRandSource(mockCtrl)
			gomock.InOrder(
				rng.EXPECT().Uint32().Return(uint32(7)),
				rng.EXPECT().Uint32().Return(uint32(32)),
			)

			e := BRRIPBuilder().
				WithGeometry(16, 4).
				WithRandSource(rng).
				Build("LLC")

			way := fill(e, 0, 0x400, 0x1000)
			Expect(e.Line(0, way).RRPV).To(Equal(uint8(3)))

			way = fill(e, 0, 0x404, 0x2000)
			Expect(e.Line(0, way).RRPV).To(Equal(uint8(2)))
		})
	})

	Context("dead-block bypass", func() {
		It("should insert dead signatures at the distant RRPV", func() {
			e := MakeBuilder().
				WithGeometry(16, 1).
				WithDeadBlockFilter(8192, 2).
				Build("LLC")
			deadPC := uint64(0x400300)

			// Fill under deadPC, then evict without a hit to train the
			// predictor.
			fill(e, 0, deadPC, 0x1000)
			fill(e, 0, 0x400400, 0x2000)

			way := fill(e, 0, deadPC, 0x3000)

			Expect(e.Line(0, way).RRPV).To(Equal(uint8(3)))
			Expect(e.Report().Bypasses).To(Equal(uint64(1)))
		})

		It("should forget trained signatures after a phase reset", func() {
			e := MakeBuilder().
				WithGeometry(16, 1).
				WithDeadBlockFilter(8192, 2).
				WithPhaseResetInterval(4).
				Build("LLC")
			deadPC := uint64(0x400300)

			fill(e, 0, deadPC, 0x1000)
			fill(e, 0, 0x400400, 0x2000)

			// Accesses 3 and 4; the reset fires on the 4th and clears the
			// filter before the insertion decision.
			fill(e, 1, 0x400500, 0x4040)
			way := fill(e, 0, deadPC, 0x3000)

			Expect(e.Line(0, way).RRPV).To(Equal(uint8(2)))
			Expect(e.Report().Bypasses).To(BeZero())
		})
	})

	Context("signature-guided insertion", func() {
		It("should insert hot signatures at MRU", func() {
			e := SHiPBuilder().WithGeometry(16, 2).Build("LLC")
			hotPC := uint64(0x400500)

			// One fill plus one hit moves the signature counter from the
			// midpoint to the hot threshold.
			way := fill(e, 0, hotPC, 0x1000)
			e.Update(0, 0, way, hotPC, 0x1000, 0, Load, true)

			way = fill(e, 1, hotPC, 0x1040)

			Expect(e.Line(1, way).RRPV).To(Equal(uint8(0)))
		})

		It("should insert cold signatures at the configured distance", func() {
			e := SHiPBuilder().WithGeometry(16, 2).Build("LLC")

			way := fill(e, 0, 0x400600, 0x1000)

			// SHiP inserts unproven signatures at the distant RRPV.
			Expect(e.Line(0, way).RRPV).To(Equal(uint8(3)))
		})
	})

	Context("reset", func() {
		It("should be idempotent and restore the cold state", func() {
			e := DDSHBuilder().WithGeometry(64, 4).Build("LLC")

			for i := 0; i < 100; i++ {
				fill(e, i%64, uint64(0x400+i), uint64(i)*0x40)
			}

			e.Reset()
			e.Reset()

			Expect(e.Report()).To(Equal(Stats{}))
			for set := 0; set < 64; set++ {
				for way := 0; way < 4; way++ {
					Expect(e.Line(set, way).Valid).To(BeFalse())
					Expect(e.Line(set, way).RRPV).To(Equal(uint8(7)))
				}
			}
		})
	})

	Context("reporting", func() {
		It("should include PSEL in the heartbeat when dueling", func() {
			e := DRRIPBuilder().WithGeometry(64, 4).Build("LLC")

			var sb strings.Builder
			e.ReportPeriodic(&sb)

			Expect(sb.String()).To(ContainSubstring("psel=511"))
		})

		It("should count evictions separately from misses", func() {
			e := SRRIPBuilder().WithGeometry(16, 1).Build("LLC")

			fill(e, 0, 0x400, 0x1000)
			fill(e, 0, 0x404, 0x2000)

			stats := e.Report()
			Expect(stats.Misses).To(Equal(uint64(2)))
			Expect(stats.Evictions).To(Equal(uint64(1)))
		})

		It("should count each access under its type", func() {
			e := SRRIPBuilder().WithGeometry(16, 4).Build("LLC")

			way := e.SelectVictim(0, 0, 0x400, 0x1000, Load)
			e.Update(0, 0, way, 0x400, 0x1000, 0, Load, false)

			way = e.SelectVictim(0, 0, 0x404, 0x2000, RFO)
			e.Update(0, 0, way, 0x404, 0x2000, 0, RFO, false)

			e.Update(0, 0, 0, 0x400, 0x1000, 0, Load, true)

			way = e.SelectVictim(0, 0, 0, 0x3000, Writeback)
			e.Update(0, 0, way, 0, 0x3000, 0, Writeback, false)

			stats := e.Report()
			Expect(stats.AccessesByType[Load]).To(Equal(uint64(2)))
			Expect(stats.AccessesByType[RFO]).To(Equal(uint64(1)))
			Expect(stats.AccessesByType[Writeback]).To(Equal(uint64(1)))
			Expect(stats.AccessesByType[Prefetch]).To(BeZero())
			Expect(stats.Accesses).To(Equal(uint64(4)))
		})

		It("should include the per-type counts in the summary", func() {
			e := SRRIPBuilder().WithGeometry(16, 4).Build("LLC")

			way := e.SelectVictim(0, 0, 0x400, 0x1000, RFO)
			e.Update(0, 0, way, 0x400, 0x1000, 0, RFO, false)

			Expect(e.Report().String()).To(ContainSubstring("rfos=1"))
		})
	})
})
