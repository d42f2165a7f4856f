package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dragonpay/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		recipients     = flag.Int("recipients", cfg.NumRecipients, "number of recipients to generate")
		invoices       = flag.Int("invoices", cfg.NumInvoices, "number of invoices to generate")
		payouts        = flag.Int("payouts", cfg.NumPayouts, "number of payouts to generate")
		verifiedChance = flag.Float64("verified-chance", cfg.VerifiedChance, "probability a recipient is verified")
		flaggedChance  = flag.Float64("flagged-chance", cfg.FlaggedChance, "probability a recipient carries a compliance flag")
		seed           = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir      = flag.String("output-dir", "data", "directory to write recipients.json, invoices.json and payouts.json")
		writeStdout    = flag.Bool("stdout", false, "write combined dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumRecipients:  *recipients,
		NumInvoices:    *invoices,
		NumPayouts:     *payouts,
		VerifiedChance: clampProbability(*verifiedChance),
		FlaggedChance:  clampProbability(*flaggedChance),
		Seed:           *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d recipients, %d invoices and %d payouts into %s\n",
		len(dataset.Recipients), len(dataset.Invoices), len(dataset.Payouts), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
