// Command quote prices a single order offline, for reconciling receipts
// against the pricing engine.
//
//	quote -input order.json -policies policies.json
//	cat order.json | quote -policy-url https://config.example.com -merge
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/app"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/quote"
	"github.com/noah-isme/backend-pos/internal/receipt"
)

// orderFile is a quote request that may carry its own policy document.
type orderFile struct {
	quote.Request
	Policies *policy.Document `json:"policies"`
}

func main() {
	var (
		inputPath    = flag.String("input", "-", "order JSON file, - for stdin")
		policiesPath = flag.String("policies", "", "policy document JSON file")
		policyURL    = flag.String("policy-url", "", "configuration API base URL")
		locale       = flag.String("locale", "en-US", "receipt locale")
		currency     = flag.String("currency", "USD", "receipt currency (ISO 4217)")
		exactOnly    = flag.Bool("exact", false, "print only the unrounded totals")
		merge        = flag.Bool("merge", false, "fold identical lines before pricing")
		verbose      = flag.Bool("v", false, "log pricing issues to stderr")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	flags := runFlags{
		input:     *inputPath,
		policies:  *policiesPath,
		policyURL: *policyURL,
		receipt:   receipt.Options{Locale: *locale, Currency: *currency},
		exactOnly: *exactOnly,
		merge:     *merge,
	}
	if err := run(context.Background(), flags, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("quote failed")
		os.Exit(1)
	}
}

type runFlags struct {
	input     string
	policies  string
	policyURL string
	receipt   receipt.Options
	exactOnly bool
	merge     bool
}

func run(ctx context.Context, flags runFlags, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	raw, err := readInput(flags.input, stdin)
	if err != nil {
		return err
	}
	var order orderFile
	if err := json.Unmarshal(raw, &order); err != nil {
		return fmt.Errorf("decode order: %w", err)
	}
	if err := validator.New().Struct(order.Request); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}
	if flags.merge {
		order.MergeLines = true
	}

	var defaults policy.Document
	switch {
	case flags.policies != "":
		data, err := os.ReadFile(flags.policies)
		if err != nil {
			return fmt.Errorf("read policies: %w", err)
		}
		if defaults, err = policy.Decode(data); err != nil {
			return fmt.Errorf("decode policies: %w", err)
		}
	case order.Policies != nil:
		defaults = *order.Policies
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	popts := policy.Options{Defaults: defaults, Logger: logger}
	if flags.policyURL != "" {
		popts.Source = app.NewPolicySource(&config.Config{PolicyAPIURL: strings.TrimRight(flags.policyURL, "/"), PolicyAPITimeout: 10 * time.Second}, logger)
	}
	provider := policy.NewProvider(popts)
	if popts.Source != nil {
		if _, err := provider.Refresh(ctx); err != nil {
			return err
		}
	}

	formatter, err := receipt.NewFormatter(flags.receipt)
	if err != nil {
		return err
	}
	res, err := quote.NewService(provider, formatter, logger).Quote(ctx, order.Request)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if flags.exactOnly {
		return enc.Encode(res.Exact)
	}
	return enc.Encode(res)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("input %s not found", path)
	}
	return data, err
}
