package ecjpake_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/protocols/ecjpake"
)

func TestStep1ProcessRejectsIdentityElement(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	require.NoError(t, a.Step1Generate(ecjpake.NewStep1(a)))

	s1b := ecjpake.NewStep1(b)
	require.NoError(t, b.Step1Generate(s1b))

	t.Run("Gx3", func(t *testing.T) {
		tampered := *s1b
		tampered.P1.Gx = b.Group().NewPoint()
		err := a.Step1Process(&tampered)
		require.ErrorIs(t, err, ecjpake.ErrGToTheX3IsNotLegal)
	})

	t.Run("Gx4", func(t *testing.T) {
		a2, b2 := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
		require.NoError(t, a2.Step1Generate(ecjpake.NewStep1(a2)))
		s1 := ecjpake.NewStep1(b2)
		require.NoError(t, b2.Step1Generate(s1))
		s1.P2.Gx = b2.Group().NewPoint()
		require.ErrorIs(t, a2.Step1Process(s1), ecjpake.ErrGToTheX4IsNotLegal)
	})
}

func TestStep1ProcessRejectsReflectedProof(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))

	s1a := ecjpake.NewStep1(a)
	require.NoError(t, a.Step1Generate(s1a))
	require.NoError(t, b.Step1Generate(ecjpake.NewStep1(b)))

	// B reflects A's own payload back. The proofs are valid bytes, but
	// the prover label inside the challenge is A's, not B's.
	err := a.Step1Process(s1a)
	require.ErrorIs(t, err, ecjpake.ErrVerifyX3Failed)
	require.Equal(t, ecjpake.PhaseFailed, a.Phase())
}

func TestStep1ProcessRejectsTamperedProof(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	require.NoError(t, a.Step1Generate(ecjpake.NewStep1(a)))

	s1b := ecjpake.NewStep1(b)
	require.NoError(t, b.Step1Generate(s1b))

	// Add one to the second proof's response scalar.
	one := b.Group().NewScalar()
	require.NoError(t, one.UnmarshalBinary(append(make([]byte, b.Group().ScalarBytes()-1), 1)))
	s1b.P2.ZKP.B.Add(one)

	require.ErrorIs(t, a.Step1Process(s1b), ecjpake.ErrVerifyX4Failed)
}

func TestStep2RequiresCompleteRound1(t *testing.T) {
	a, _ := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))

	err := a.Step2Generate(ecjpake.NewStep2(a))
	require.Error(t, err)
	require.NotEqual(t, ecjpake.PhaseFailed, a.Phase())

	require.NoError(t, a.Step1Generate(ecjpake.NewStep1(a)))
	require.Error(t, a.Step2Generate(ecjpake.NewStep2(a)))
}

func TestStep2ProcessRejectsTamperedElement(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))

	s1a, s1b := ecjpake.NewStep1(a), ecjpake.NewStep1(b)
	require.NoError(t, a.Step1Generate(s1a))
	require.NoError(t, b.Step1Generate(s1b))
	require.NoError(t, a.Step1Process(s1b))
	require.NoError(t, b.Step1Process(s1a))

	s2b := ecjpake.NewStep2(b)
	require.NoError(t, b.Step2Generate(s2b))

	// Replace the round-2 element with another group element; the
	// proof no longer matches.
	s2b.Gx = s2b.Gx.Add(b.Group().NewBasePoint())
	err := a.Step2Process(s2b)
	require.ErrorIs(t, err, ecjpake.ErrVerifyX4SFailed)
	require.Equal(t, ecjpake.PhaseFailed, a.Phase())
}

func TestStep2ProcessRejectsSwappedProofLabel(t *testing.T) {
	// A third party C shares the password but has a different
	// identity; its round-2 proof must not verify as B's.
	group := curve.P256()
	a, b := openPair(t, group, []byte("hunter2"), []byte("hunter2"))

	s1a, s1b := ecjpake.NewStep1(a), ecjpake.NewStep1(b)
	require.NoError(t, a.Step1Generate(s1a))
	require.NoError(t, b.Step1Generate(s1b))
	require.NoError(t, a.Step1Process(s1b))
	require.NoError(t, b.Step1Process(s1a))

	c, err := ecjpake.Open(group, []byte("hunter2"), "carol", "alice")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Step1Generate(ecjpake.NewStep1(c)))
	require.NoError(t, c.Step1Process(s1a))

	s2c := ecjpake.NewStep2(c)
	require.NoError(t, c.Step2Generate(s2c))

	// C's element was even built over different round-1 publics; under
	// A's view of B it cannot verify.
	require.ErrorIs(t, a.Step2Process(s2c), ecjpake.ErrVerifyX4SFailed)
}

func TestStep3TagsAreDomainSeparated(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	completeRounds(t, a, b)

	s3a := ecjpake.NewStep3A()
	require.NoError(t, a.Step3AGenerate(s3a))
	s3b := ecjpake.NewStep3B()
	require.NoError(t, b.Step3BGenerate(s3b))

	// Hk and HHk must differ even though both derive from the same
	// key; the leading domain byte separates them.
	require.NotEqual(t, s3a.HHK, s3b.HK)

	// Feeding the Hk tag where HHk is expected must fail.
	swapped := ecjpake.NewStep3A()
	swapped.HHK = s3b.HK
	require.ErrorIs(t, b.Step3AProcess(swapped), ecjpake.ErrHashOfHashOfKeyMismatch)
}

func TestStep3BMismatchReason(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	completeRounds(t, a, b)

	s3b := ecjpake.NewStep3B()
	require.NoError(t, b.Step3BGenerate(s3b))
	s3b.HK[31] ^= 0x01
	require.ErrorIs(t, a.Step3BProcess(s3b), ecjpake.ErrHashOfKeyMismatch)
}

func TestStep3RequiresKey(t *testing.T) {
	a, _ := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	require.Error(t, a.Step3AGenerate(ecjpake.NewStep3A()))
	require.Error(t, a.Step3BGenerate(ecjpake.NewStep3B()))
}
