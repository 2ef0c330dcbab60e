package repl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Builder", func() {
	It("should build the default SRRIP engine", func() {
		e := MakeBuilder().Build("LLC")

		numSets, numWays := e.Geometry()
		Expect(numSets).To(Equal(2048))
		Expect(numWays).To(Equal(16))
		Expect(e.Name()).To(Equal("LLC"))

		_, dueling := e.PSEL()
		Expect(dueling).To(BeFalse())
	})

	It("should reject a non-power-of-two signature table", func() {
		Expect(func() {
			MakeBuilder().
				WithPolicy(SignatureGuided).
				WithSignatureTable(1000, 2).
				Build("LLC")
		}).To(Panic())
	})

	It("should reject a non-power-of-two dead-block filter", func() {
		Expect(func() {
			MakeBuilder().WithDeadBlockFilter(1000, 2).Build("LLC")
		}).To(Panic())
	})

	It("should reject leaders that overflow the dueling period", func() {
		Expect(func() {
			MakeBuilder().
				WithDuelingPolicies(SRRIP, BRRIP).
				WithDuelingPeriod(32, 17).
				Build("LLC")
		}).To(Panic())
	})

	It("should reject bands out of the RRPV range", func() {
		Expect(func() {
			MakeBuilder().
				WithPolicy(SignatureGuided).
				WithInsertionBands(InsertionBand{MinCounter: 2, RRPV: 9}).
				Build("LLC")
		}).To(Panic())
	})

	It("should reject non-descending bands", func() {
		Expect(func() {
			MakeBuilder().
				WithPolicy(SignatureGuided).
				WithInsertionBands(
					InsertionBand{MinCounter: 2, RRPV: 0},
					InsertionBand{MinCounter: 3, RRPV: 1},
				).
				Build("LLC")
		}).To(Panic())
	})

	It("should reject an insertion RRPV above the maximum", func() {
		Expect(func() {
			MakeBuilder().WithRRPVBits(2).WithInsertRRPV(4).Build("LLC")
		}).To(Panic())
	})

	It("should reject empty geometry", func() {
		Expect(func() {
			MakeBuilder().WithGeometry(0, 16).Build("LLC")
		}).To(Panic())
	})

	It("should build every preset", func() {
		for _, name := range PresetNames() {
			b, err := BuilderForPreset(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(b.Build(name)).NotTo(BeNil())
		}
	})

	It("should reject unknown presets", func() {
		_, err := BuilderForPreset("plru")

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Insertion bands", func() {
	It("should map counter values through multiple bands", func() {
		e := MakeBuilder().
			WithRRPVBits(3).
			WithGeometry(16, 2).
			WithPolicy(SignatureGuided).
			WithSignatureTable(16, 3).
			WithInsertionBands(
				InsertionBand{MinCounter: 6, RRPV: 0},
				InsertionBand{MinCounter: 4, RRPV: 2},
				InsertionBand{MinCounter: 2, RRPV: 4},
			).
			Build("LLC")

		pc := uint64(0x400100)

		// Midpoint of a 3-bit counter is 3: too cold for the hot bands,
		// warm enough for the coolest one.
		way := fill(e, 0, pc, 0x1000)
		Expect(e.Line(0, way).RRPV).To(Equal(uint8(4)))

		// Two hits raise the counter to 5, promoting fills to the middle
		// band.
		e.Update(0, 0, way, pc, 0x1000, 0, Load, true)
		e.Update(0, 0, way, pc, 0x1000, 0, Load, true)

		way = fill(e, 1, pc, 0x2000)
		Expect(e.Line(1, way).RRPV).To(Equal(uint8(2)))
	})
})
