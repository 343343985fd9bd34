package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"kiln/internal/data"
	"kiln/internal/tokenizer"
)

// tokenizeCmd renders one record through the masking pipeline and prints
// the token/label alignment, for eyeballing where the mask boundaries fall.
func tokenizeCmd() *cli.Command {
	var (
		dataPath  string
		dataset   string
		index     int64
		maxLength int64
	)

	return &cli.Command{
		Name:  "tokenize",
		Usage: "Show the masked tokenization of one dataset record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "data",
				Usage:       "path to the dataset (JSONL)",
				Destination: &dataPath,
			},
			&cli.StringFlag{
				Name:        "dataset",
				Usage:       "dataset kind: chat or reasoning",
				Value:       "chat",
				Destination: &dataset,
			},
			&cli.Int64Flag{
				Name:        "index",
				Aliases:     []string{"i"},
				Usage:       "record index",
				Destination: &index,
			},
			&cli.Int64Flag{
				Name:        "max-length",
				Usage:       "truncation bound (0 = none)",
				Destination: &maxLength,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if dataPath == "" {
				return fmt.Errorf("kiln: no dataset; pass --data")
			}
			src, err := data.OpenSource(dataset, dataPath)
			if err != nil {
				return err
			}
			if index < 0 || int(index) >= src.Len() {
				return fmt.Errorf("kiln: index %d out of range (dataset has %d records)", index, src.Len())
			}
			conv, err := src.Get(int(index))
			if err != nil {
				return err
			}

			tok := tokenizer.ByteTokenizer{}
			ex, err := data.Tokenize(conv, tokenizer.ChatML{Tok: tok}, data.MaskOptions{MaxLength: int(maxLength)})
			if err != nil {
				return err
			}

			masked := 0
			for i, id := range ex.InputIDs {
				text, _ := tok.Decode([]int{id})
				label := fmt.Sprint(ex.Labels[i])
				if ex.Labels[i] == data.Ignore {
					label = "IGNORE"
					masked++
				}
				fmt.Printf("%5d  %6d  %-6s  %q\n", i, id, label, text)
			}
			fmt.Printf("\n%d tokens, %d masked, %d learnable\n", ex.Len(), masked, ex.Len()-masked)
			return nil
		},
	}
}
