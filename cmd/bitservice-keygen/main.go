// Command bitservice-keygen generates a peer identity keypair, writing the
// private key with 0600 permissions and the public key alongside it,
// generalizing bitservice-peer/src/bin/key-gen.rs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TaceoLabs/bitservice/internal/crypto"
)

func main() {
	var outPath string
	cmd := &cobra.Command{
		Use:   "bitservice-keygen",
		Short: "Generates a sealed-box peer identity keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(outPath)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "peer.key", "path to write the private key to (the public key is written to <out>.pub)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := crypto.SavePrivateKey(outPath, kp.Private); err != nil {
		return err
	}
	pubPath := outPath + ".pub"
	if err := crypto.SavePublicKey(pubPath, kp.Public); err != nil {
		return err
	}
	fmt.Printf("wrote private key to %s, public key to %s\n", outPath, pubPath)
	return nil
}
