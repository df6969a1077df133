// Command bitservice-client is a reference driver for internal/client,
// generalizing original_source's bitservice-client/src/bin/bitservice-client.rs
// three subcommands (read, ban, unban) into one cobra CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/spf13/cobra"

	"github.com/TaceoLabs/bitservice/internal/client"
	"github.com/TaceoLabs/bitservice/internal/crypto"
	"github.com/TaceoLabs/bitservice/internal/snark"
)

type options struct {
	serverURL    string
	rpID         string
	key          uint32
	readVKPath   string
	writeVKPath  string
	peerKeyPaths []string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "bitservice-client",
		Short: "Reads or mutates a bitservice banlist",
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "server-url", "", "coordinator base URL")
	root.PersistentFlags().StringVar(&opts.rpID, "rp-id", "", "relying party id")
	root.PersistentFlags().Uint32Var(&opts.key, "key", 0, "32-bit user key")
	root.PersistentFlags().StringVar(&opts.readVKPath, "read-vk", "", "path to the read circuit's verifying key JSON")
	root.PersistentFlags().StringVar(&opts.writeVKPath, "write-vk", "", "path to the write circuit's verifying key JSON")
	root.PersistentFlags().StringSliceVar(&opts.peerKeyPaths, "peer-public-key", nil, "path to a peer's public key file (repeat 3 times, in party order)")
	_ = root.MarkPersistentFlagRequired("server-url")
	_ = root.MarkPersistentFlagRequired("rp-id")
	_ = root.MarkPersistentFlagRequired("read-vk")
	_ = root.MarkPersistentFlagRequired("write-vk")

	root.AddCommand(
		&cobra.Command{
			Use:   "read",
			Short: "Checks whether key is currently banned",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := buildClient(opts)
				if err != nil {
					return err
				}
				var r fr.Element
				if _, err := r.SetRandom(); err != nil {
					return err
				}
				value, err := c.Read(context.Background(), opts.key, r)
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "ban",
			Short: "Bans key",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := buildClient(opts)
				if err != nil {
					return err
				}
				rKey, rValue, err := randomPair()
				if err != nil {
					return err
				}
				return c.Ban(context.Background(), opts.key, rKey, rValue)
			},
		},
		&cobra.Command{
			Use:   "unban",
			Short: "Unbans key",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := buildClient(opts)
				if err != nil {
					return err
				}
				rKey, rValue, err := randomPair()
				if err != nil {
					return err
				}
				return c.Unban(context.Background(), opts.key, rKey, rValue)
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildClient(opts *options) (*client.Client, error) {
	if len(opts.peerKeyPaths) != 3 {
		return nil, fmt.Errorf("must provide exactly 3 --peer-public-key flags, got %d", len(opts.peerKeyPaths))
	}

	var peerPubKeys [3]crypto.PublicKey
	for i, path := range opts.peerKeyPaths {
		pub, err := crypto.LoadPublicKey(path)
		if err != nil {
			return nil, err
		}
		peerPubKeys[i] = pub
	}

	readVKData, err := os.ReadFile(opts.readVKPath)
	if err != nil {
		return nil, err
	}
	readVK, err := snark.ParseVerifyingKey(readVKData)
	if err != nil {
		return nil, err
	}

	writeVKData, err := os.ReadFile(opts.writeVKPath)
	if err != nil {
		return nil, err
	}
	writeVK, err := snark.ParseVerifyingKey(writeVKData)
	if err != nil {
		return nil, err
	}

	return client.New(nil, opts.serverURL, opts.rpID, peerPubKeys, readVK, writeVK), nil
}

func randomPair() (fr.Element, fr.Element, error) {
	var a, b fr.Element
	if _, err := a.SetRandom(); err != nil {
		return a, b, err
	}
	if _, err := b.SetRandom(); err != nil {
		return a, b, err
	}
	return a, b, nil
}
