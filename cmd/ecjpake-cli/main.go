// Command ecjpake-cli demonstrates and benchmarks the EC-J-PAKE
// handshake by running both parties in-process.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/party"
	"github.com/passware/ecjpake/pkg/protocol"
	"github.com/passware/ecjpake/protocols/ecjpake"
)

var (
	curveName    string
	password     string
	peerPassword string
	localName    string
	peerName     string
	confirm      bool
	iterations   int

	rootCmd = &cobra.Command{
		Use:   "ecjpake-cli",
		Short: "EC-J-PAKE handshake demo and benchmarks",
		Long: `Runs both ends of an EC-J-PAKE password-authenticated key exchange
in-process: rounds 1 and 2, key derivation, and the optional key
confirmation handshake.`,
	}

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a full handshake and print both derived keys",
		RunE:  runDemo,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Measure handshake throughput",
		RunE:  runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&curveName, "curve", "c", "P-256", "curve: P-256, P-384, secp256k1")
	rootCmd.PersistentFlags().StringVar(&localName, "local-id", "alice", "initiator identity")
	rootCmd.PersistentFlags().StringVar(&peerName, "peer-id", "bob", "responder identity")

	demoCmd.Flags().StringVarP(&password, "password", "p", "hunter2", "shared secret of the initiator")
	demoCmd.Flags().StringVar(&peerPassword, "peer-password", "", "responder secret, if different (demonstrates mismatch)")
	demoCmd.Flags().BoolVar(&confirm, "confirm", true, "run the key confirmation steps")

	benchCmd.Flags().IntVarP(&iterations, "iterations", "n", 50, "number of handshakes")

	rootCmd.AddCommand(demoCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// handshake runs one complete exchange and returns both derived keys.
func handshake(group curve.Curve, initiatorSecret, responderSecret []byte, confirm bool) ([]byte, []byte, error) {
	local := party.ID(localName)
	peer := party.ID(peerName)

	initiator, err := ecjpake.Open(group, initiatorSecret, local, peer)
	if err != nil {
		return nil, nil, err
	}
	defer initiator.Close()
	responder, err := ecjpake.Open(group, responderSecret, peer, local)
	if err != nil {
		return nil, nil, err
	}
	defer responder.Close()

	hi, err := protocol.NewHandler(initiator, true, confirm)
	if err != nil {
		return nil, nil, err
	}
	hr, err := protocol.NewHandler(responder, false, confirm)
	if err != nil {
		return nil, nil, err
	}

	var g errgroup.Group
	g.Go(func() error { return pump(hi, hr) })
	g.Go(func() error { return pump(hr, hi) })
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	keyI, errI := hi.Result()
	keyR, errR := hr.Result()
	if errI != nil {
		return nil, nil, errI
	}
	if errR != nil {
		return nil, nil, errR
	}
	return keyI, keyR, nil
}

// pump forwards every message from one handler to the other until the
// source side finishes.
func pump(from, to *protocol.Handler) error {
	for msg := range from.Listen() {
		to.Accept(msg)
	}
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	group, err := curve.ByName(curveName)
	if err != nil {
		return err
	}
	responderSecret := password
	if peerPassword != "" {
		responderSecret = peerPassword
	}

	fmt.Printf("curve:      %s\n", group.Name())
	fmt.Printf("parties:    %s <-> %s\n", localName, peerName)
	fmt.Printf("confirm:    %v\n", confirm)

	start := time.Now()
	keyI, keyR, err := handshake(group, []byte(password), []byte(responderSecret), confirm)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("handshake failed after %s: %w", elapsed, err)
	}

	fmt.Printf("elapsed:    %s\n", elapsed)
	fmt.Printf("%s key: %s\n", localName, hex.EncodeToString(keyI))
	fmt.Printf("%s key:   %s\n", peerName, hex.EncodeToString(keyR))
	if !equalKeys(keyI, keyR) {
		return errors.New("keys differ")
	}
	fmt.Println("keys match")
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	group, err := curve.ByName(curveName)
	if err != nil {
		return err
	}
	secret := []byte("benchmark secret")

	start := time.Now()
	for i := 0; i < iterations; i++ {
		if _, _, err := handshake(group, secret, secret, true); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%d handshakes on %s in %s (%.1f ms each)\n",
		iterations, group.Name(), elapsed,
		float64(elapsed.Milliseconds())/float64(iterations))
	return nil
}

func equalKeys(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
