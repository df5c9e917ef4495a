package ecjpake_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/protocols/ecjpake"
)

var _ = Describe("Handshake", func() {
	var (
		a, b *ecjpake.Context
	)

	open := func(secretA, secretB string) {
		var err error
		a, err = ecjpake.Open(curve.P256(), []byte(secretA), alice, bob)
		Expect(err).NotTo(HaveOccurred())
		b, err = ecjpake.Open(curve.P256(), []byte(secretB), bob, alice)
		Expect(err).NotTo(HaveOccurred())
	}

	run := func() error {
		return runRounds(a, b,
			ecjpake.NewStep1(a), ecjpake.NewStep1(b),
			ecjpake.NewStep2(a), ecjpake.NewStep2(b))
	}

	AfterEach(func() {
		a.Close()
		b.Close()
	})

	Context("with matching secrets", func() {
		BeforeEach(func() {
			open("hunter2", "hunter2")
		})

		It("derives the same key on both sides", func() {
			Expect(run()).To(Succeed())
			Expect(a.SharedKey()).To(Equal(b.SharedKey()))
		})

		It("confirms the key with steps 3A and 3B", func() {
			Expect(run()).To(Succeed())

			s3a := ecjpake.NewStep3A()
			Expect(a.Step3AGenerate(s3a)).To(Succeed())
			Expect(b.Step3AProcess(s3a)).To(Succeed())

			s3b := ecjpake.NewStep3B()
			Expect(b.Step3BGenerate(s3b)).To(Succeed())
			Expect(a.Step3BProcess(s3b)).To(Succeed())

			Expect(a.Phase()).To(Equal(ecjpake.PhaseConfirmed))
		})

		It("advances the phase monotonically", func() {
			Expect(a.Phase()).To(Equal(ecjpake.PhaseFresh))
			s1a, s1b := ecjpake.NewStep1(a), ecjpake.NewStep1(b)
			Expect(a.Step1Generate(s1a)).To(Succeed())
			Expect(a.Phase()).To(Equal(ecjpake.PhaseS1Sent))
			Expect(b.Step1Generate(s1b)).To(Succeed())
			Expect(a.Step1Process(s1b)).To(Succeed())
			Expect(a.Phase()).To(Equal(ecjpake.PhaseS1Received))
			Expect(b.Step1Process(s1a)).To(Succeed())

			s2a, s2b := ecjpake.NewStep2(a), ecjpake.NewStep2(b)
			Expect(a.Step2Generate(s2a)).To(Succeed())
			Expect(a.Phase()).To(Equal(ecjpake.PhaseS2Sent))
			Expect(b.Step2Generate(s2b)).To(Succeed())
			Expect(a.Step2Process(s2b)).To(Succeed())
			Expect(a.Phase()).To(Equal(ecjpake.PhaseKeyReady))
			Expect(b.Step2Process(s2a)).To(Succeed())
		})
	})

	Context("with different secrets", func() {
		BeforeEach(func() {
			open("hunter2", "hunter3")
		})

		It("completes the rounds but fails confirmation", func() {
			Expect(run()).To(Succeed())
			Expect(a.SharedKey()).NotTo(Equal(b.SharedKey()))

			s3a := ecjpake.NewStep3A()
			Expect(a.Step3AGenerate(s3a)).To(Succeed())
			Expect(b.Step3AProcess(s3a)).To(MatchError(ecjpake.ErrHashOfHashOfKeyMismatch))
		})
	})
})
