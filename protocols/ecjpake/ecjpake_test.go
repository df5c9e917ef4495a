package ecjpake_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/party"
	"github.com/passware/ecjpake/protocols/ecjpake"
)

const (
	alice = party.ID("alice")
	bob   = party.ID("bob")
)

// openPair opens the two ends of a session with possibly different
// secrets.
func openPair(t *testing.T, group curve.Curve, secretA, secretB []byte) (*ecjpake.Context, *ecjpake.Context) {
	t.Helper()
	a, err := ecjpake.Open(group, secretA, alice, bob)
	require.NoError(t, err)
	b, err := ecjpake.Open(group, secretB, bob, alice)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// runRounds carries both contexts through rounds 1 and 2, reusing the
// supplied payloads.
func runRounds(a, b *ecjpake.Context, s1a, s1b *ecjpake.Step1, s2a, s2b *ecjpake.Step2) error {
	if err := a.Step1Generate(s1a); err != nil {
		return err
	}
	if err := b.Step1Generate(s1b); err != nil {
		return err
	}
	if err := a.Step1Process(s1b); err != nil {
		return err
	}
	if err := b.Step1Process(s1a); err != nil {
		return err
	}
	if err := a.Step2Generate(s2a); err != nil {
		return err
	}
	if err := b.Step2Generate(s2b); err != nil {
		return err
	}
	if err := a.Step2Process(s2b); err != nil {
		return err
	}
	return b.Step2Process(s2a)
}

func completeRounds(t *testing.T, a, b *ecjpake.Context) {
	t.Helper()
	err := runRounds(a, b, ecjpake.NewStep1(a), ecjpake.NewStep1(b), ecjpake.NewStep2(a), ecjpake.NewStep2(b))
	require.NoError(t, err)
}

func TestHandshakeHappyPath(t *testing.T) {
	for _, group := range []curve.Curve{curve.P256(), curve.P384(), curve.Secp256k1()} {
		t.Run(group.Name(), func(t *testing.T) {
			a, b := openPair(t, group, []byte("hunter2"), []byte("hunter2"))
			completeRounds(t, a, b)

			require.Equal(t, ecjpake.PhaseKeyReady, a.Phase())
			require.Equal(t, ecjpake.PhaseKeyReady, b.Phase())
			require.Equal(t, a.SharedKey(), b.SharedKey())
			require.Len(t, a.SharedKey(), ecjpake.KeySize)
			require.NotEqual(t, make([]byte, ecjpake.KeySize), a.SharedKey())

			// Confirmation: A initiates with HHk, B answers with Hk.
			s3a := ecjpake.NewStep3A()
			require.NoError(t, a.Step3AGenerate(s3a))
			require.NoError(t, b.Step3AProcess(s3a))
			s3b := ecjpake.NewStep3B()
			require.NoError(t, b.Step3BGenerate(s3b))
			require.NoError(t, a.Step3BProcess(s3b))
			require.Equal(t, ecjpake.PhaseConfirmed, a.Phase())
		})
	}
}

func TestHandshakeWrongPassword(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter3"))

	// Rounds 1 and 2 cannot detect the mismatch.
	completeRounds(t, a, b)
	require.NotEqual(t, a.SharedKey(), b.SharedKey())

	// The confirmation is where it surfaces.
	s3a := ecjpake.NewStep3A()
	require.NoError(t, a.Step3AGenerate(s3a))
	err := b.Step3AProcess(s3a)
	require.ErrorIs(t, err, ecjpake.ErrHashOfHashOfKeyMismatch)
	require.Equal(t, ecjpake.PhaseFailed, b.Phase())
}

func TestOpenRejectsEqualIdentities(t *testing.T) {
	_, err := ecjpake.Open(curve.P256(), []byte("secret"), alice, alice)
	require.Error(t, err)
}

func TestOpenRejectsZeroSecret(t *testing.T) {
	group := curve.P256()

	// The group order itself reduces to zero mod q.
	_, err := ecjpake.Open(group, group.Order().Bytes(), alice, bob)
	require.Error(t, err)

	_, err = ecjpake.Open(group, nil, alice, bob)
	require.Error(t, err)
}

func TestFailedSessionRejectsAllOperations(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	completeRounds(t, a, b)

	s3a := ecjpake.NewStep3A()
	require.NoError(t, a.Step3AGenerate(s3a))
	s3a.HHK[0] ^= 0xff
	require.ErrorIs(t, b.Step3AProcess(s3a), ecjpake.ErrHashOfHashOfKeyMismatch)

	// Everything after the failure is refused.
	require.ErrorIs(t, b.Step1Generate(ecjpake.NewStep1(b)), ecjpake.ErrSessionFailed)
	require.ErrorIs(t, b.Step2Generate(ecjpake.NewStep2(b)), ecjpake.ErrSessionFailed)
	require.ErrorIs(t, b.Step3BGenerate(ecjpake.NewStep3B()), ecjpake.ErrSessionFailed)
}

func TestCloseZeroizesKey(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	completeRounds(t, a, b)

	view := a.SharedKey()
	require.NotEqual(t, make([]byte, ecjpake.KeySize), view)

	a.Close()
	require.Equal(t, make([]byte, ecjpake.KeySize), view)
	require.Error(t, a.Step1Generate(ecjpake.NewStep1(a)))
}

func TestRenegotiationReusesPayloads(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))

	s1a, s1b := ecjpake.NewStep1(a), ecjpake.NewStep1(b)
	s2a, s2b := ecjpake.NewStep2(a), ecjpake.NewStep2(b)

	require.NoError(t, runRounds(a, b, s1a, s1b, s2a, s2b))
	first := make([]byte, ecjpake.KeySize)
	copy(first, a.SharedKey())
	require.Equal(t, a.SharedKey(), b.SharedKey())

	// A second handshake on the same contexts, reusing the payloads
	// without reinitialization.
	require.NoError(t, runRounds(a, b, s1a, s1b, s2a, s2b))
	require.Equal(t, a.SharedKey(), b.SharedKey())
	require.NotEqual(t, first, a.SharedKey())
}

func TestStep1GenerateDrawsFreshRandomness(t *testing.T) {
	a, err := ecjpake.Open(curve.P256(), []byte("hunter2"), alice, bob)
	require.NoError(t, err)
	defer a.Close()

	s1 := ecjpake.NewStep1(a)
	require.NoError(t, a.Step1Generate(s1))
	firstP1 := a.Group().NewPoint().Set(s1.P1.Gx)
	firstP2 := a.Group().NewPoint().Set(s1.P2.Gx)

	require.NoError(t, a.Step1Generate(s1))
	require.False(t, s1.P1.Gx.Equal(firstP1))
	require.False(t, s1.P2.Gx.Equal(firstP2))
}

func TestSharedKeyIsBorrowedView(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	completeRounds(t, a, b)

	view := a.SharedKey()
	first := make([]byte, ecjpake.KeySize)
	copy(first, view)

	// A renegotiation overwrites the storage behind the view.
	completeRounds(t, a, b)
	require.False(t, bytes.Equal(first, view))
}

func TestDeriveSessionKeys(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))

	_, err := a.DeriveSessionKeys(nil, []byte("traffic"), 32)
	require.Error(t, err) // key not ready yet

	completeRounds(t, a, b)

	ka, err := a.DeriveSessionKeys(nil, []byte("traffic"), 44)
	require.NoError(t, err)
	kb, err := b.DeriveSessionKeys(nil, []byte("traffic"), 44)
	require.NoError(t, err)
	require.Equal(t, ka, kb)
	require.Len(t, ka, 44)

	other, err := a.DeriveSessionKeys(nil, []byte("other"), 44)
	require.NoError(t, err)
	require.NotEqual(t, ka, other)
}

func TestErrorCarriesOpAndReason(t *testing.T) {
	a, b := openPair(t, curve.P256(), []byte("hunter2"), []byte("hunter2"))
	require.NoError(t, a.Step1Generate(ecjpake.NewStep1(a)))

	s1b := ecjpake.NewStep1(b)
	require.NoError(t, b.Step1Generate(s1b))
	s1b.P1.Gx = b.Group().NewPoint() // identity

	err := a.Step1Process(s1b)
	var perr *ecjpake.Error
	require.True(t, errors.As(err, &perr))
	require.Equal(t, ecjpake.OpStep1Process, perr.Op)
	require.Equal(t, ecjpake.ReasonGToTheX3IsNotLegal, perr.Reason)
	require.Contains(t, perr.Error(), "G_TO_THE_X3_IS_NOT_LEGAL")
}
