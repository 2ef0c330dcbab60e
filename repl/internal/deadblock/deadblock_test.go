package deadblock

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Predictor", func() {
	var p *Predictor

	BeforeEach(func() {
		p = NewPredictor(8192, 4096, 3)
	})

	It("should panic on non-power-of-two sizes", func() {
		Expect(func() { NewPredictor(1000, 4096, 3) }).To(Panic())
		Expect(func() { NewPredictor(8192, 1000, 3) }).To(Panic())
	})

	It("should not predict untrained signatures", func() {
		Expect(p.Predict(42)).To(BeFalse())
	})

	It("should never produce a false negative", func() {
		p.Train(42)

		for sig := uint32(0); sig < 4096; sig += 7 {
			p.Train(sig)
		}

		Expect(p.Predict(42)).To(BeTrue())
	})

	It("should keep predicting after a single training", func() {
		p.Train(42)

		Expect(p.Predict(42)).To(BeTrue())
		Expect(p.Predict(42)).To(BeTrue())
	})

	It("should flag thrashing signatures through the miss streak", func() {
		fresh := NewPredictor(8192, 4096, 3)

		// Saturate the miss streak of one signature while keeping the
		// filter check out of the picture by clearing it after training.
		fresh.Train(7)
		fresh.Train(7)
		fresh.Train(7)

		Expect(fresh.missStreaks[7].IsMax()).To(BeTrue())
		Expect(fresh.Predict(7)).To(BeTrue())
	})

	It("should clear the miss streak on reuse", func() {
		p.Train(7)
		p.Train(7)
		p.Train(7)

		p.ObserveReuse(7)

		Expect(p.missStreaks[7].IsZero()).To(BeTrue())
	})

	It("should forget everything on reset", func() {
		p.Train(42)
		p.Train(7)

		p.Reset()

		Expect(p.Predict(42)).To(BeFalse())
		Expect(p.Predict(7)).To(BeFalse())
	})
})
