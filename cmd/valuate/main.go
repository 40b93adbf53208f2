// Command valuate computes one valuation and prints its oracle payload as hex.
//
//	valuate --type price "123 Main St, Austin, TX 78701"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/env"
	"github.com/yourorg/valuation-api/internal/logger"
	"github.com/yourorg/valuation-api/internal/oracle"
	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/valuation"
	"github.com/yourorg/valuation-api/provider"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("valuate", pflag.ContinueOnError)
	typ := fs.StringP("type", "t", string(valuation.TypeFull), "request type: full, price, rent or market")
	verbose := fs.BoolP("verbose", "v", false, "log provider calls to stderr")
	showJSON := fs.Bool("json", false, "also print the composite as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	identifier := strings.Join(fs.Args(), " ")

	_ = env.Load()
	log := zap.NewNop()
	if *verbose {
		log = logger.New("debug", "console")
	}
	defer func() { _ = log.Sync() }()

	agg := valuation.NewAggregator(provider.NewAdapters(provider.ConfigFromEnv(), log), log)
	res, err := pipeline.New(agg, nil, log).Run(context.Background(), valuation.Request{Identifier: identifier, Type: valuation.RequestType(*typ)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "valuate:", err)
		return 1
	}
	fmt.Println(oracle.Hex(res.Payload))
	if *showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res.Outcome.Composite)
	}
	return 0
}
