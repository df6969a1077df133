// Command bitservice-indexer tails a file of newline-delimited JSON
// commitment records (as a peer operator might export from write-proof
// logs) and feeds them to an Indexer, demonstrating the commitment
// registry indexer's shape per spec.md section 1 without implementing
// Poseidon hashing or chain-watching.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/TaceoLabs/bitservice/internal/indexer"
	"github.com/TaceoLabs/bitservice/internal/wire"
)

// commitmentRecord is one line of the tailed file.
type commitmentRecord struct {
	CommitmentKey   wire.FieldElement `json:"commitment_key"`
	CommitmentValue wire.FieldElement `json:"commitment_value"`
	BlockHeight     uint64            `json:"block_height"`
}

func main() {
	var path string
	cmd := &cobra.Command{
		Use:   "bitservice-indexer",
		Short: "Tails commitment records and records them in the registry indexer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(path)
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "path to the newline-delimited JSON commitment log")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	idx := indexer.NewMemoryIndexer()
	reader := bufio.NewReader(f)
	ctx := context.Background()

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var rec commitmentRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				fmt.Fprintf(os.Stderr, "skipping malformed line: %v\n", err)
			} else if err := idx.Index(ctx, rec.CommitmentKey.Element, rec.CommitmentValue.Element, rec.BlockHeight); err != nil {
				fmt.Fprintf(os.Stderr, "indexing record: %v\n", err)
			}
		}
		if err == io.EOF {
			time.Sleep(time.Second)
			continue
		}
		if err != nil {
			return err
		}
	}
}
