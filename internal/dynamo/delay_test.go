package dynamo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lumasim/internal/dynamo"
)

var _ = Describe("EffectiveControlIndex", func() {
	It("is the identity without dead time", func() {
		for i := 0; i < 50; i++ {
			Expect(dynamo.EffectiveControlIndex(i, 0, 1)).To(Equal(i))
		}
	})

	DescribeTable("shifts by whole samples",
		func(theta, dt float64, k int) {
			d := dynamo.NewTransportDelay(theta, dt)
			Expect(d.Steps).To(Equal(k))
			for i := 0; i < 40; i++ {
				Expect(d.Index(i)).To(Equal(max(0, i-k)))
			}
		},
		Entry("exact multiple", 3.0, 1.0, 3),
		Entry("fractional dead time rounds up", 0.5, 1.0, 1),
		Entry("decimal dt exact multiple", 0.3, 0.1, 3),
		Entry("decimal dt exact multiple above ten", 1.2, 0.1, 12),
		Entry("just past a multiple", 1.01, 0.5, 3),
	)

	It("uses the first sample while the delay line fills", func() {
		d := dynamo.NewTransportDelay(5, 1)
		Expect(d.Index(0)).To(Equal(0))
		Expect(d.Index(4)).To(Equal(0))
		Expect(d.Index(5)).To(Equal(0))
		Expect(d.Index(6)).To(Equal(1))
	})

	It("never points past the current step", func() {
		d := dynamo.TransportDelay{Steps: -3}
		Expect(d.Index(7)).To(Equal(7))
	})
})
