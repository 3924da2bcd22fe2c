package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/Klingon-tech/klingnet-lite/pkg/block"
	"github.com/Klingon-tech/klingnet-lite/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lite/pkg/tx"
)

// ── hash ───────────────────────────────────────────────────────────────

func cmdHash(args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	isHex := fs.Bool("hex", false, "Input is hex encoded")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: klingnet-lite hash [--hex] <data>")
	}
	data, err := decodeArg(fs.Arg(0), *isHex)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(crypto.DoubleHash(data))
}

// ── merkle ─────────────────────────────────────────────────────────────

func cmdMerkle(args []string) {
	fs := flag.NewFlagSet("merkle", flag.ExitOnError)
	isHex := fs.Bool("hex", false, "Leaves are hex encoded")
	txFile := fs.String("txs", "", "JSON file with a list of transactions (- for stdin)")
	fs.Parse(args)

	if *txFile != "" {
		data, err := readInput(*txFile)
		if err != nil {
			fatal("%v", err)
		}
		var txs []*tx.Transaction
		if err := json.Unmarshal(data, &txs); err != nil {
			fatal("parse transactions: %v", err)
		}
		root, err := block.TxMerkleRoot(txs)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Println(root)
		return
	}

	leaves, err := decodeLeaves(fs.Args(), *isHex)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(block.MerkleRoot(leaves))
}

func decodeLeaves(args []string, isHex bool) ([][]byte, error) {
	leaves := make([][]byte, len(args))
	for i, arg := range args {
		b, err := decodeArg(arg, isHex)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves[i] = b
	}
	return leaves, nil
}

func decodeArg(s string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(s), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}
