// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Shardkit/go/ct"
	cliUtils "github.com/Fantom-foundation/Shardkit/go/ct/driver/cli"
	"github.com/Fantom-foundation/Shardkit/go/ct/fixture"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var VerifyCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doVerify,
	Name:      "verify",
	Usage:     "Replays fixture vectors on a ledger engine and checks the resulting state roots",
	ArgsUsage: "<file or directory>...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "engine",
			Usage: "name of the ledger engine to test",
			Value: "transfer",
		},
		cliUtils.FilterFlag,
		cliUtils.JobsFlag,
		cliUtils.MaxErrorsFlag,
	},
})

func doVerify(context *cli.Context) error {
	engine := context.String("engine")
	factory := ledger.GetEngineFactory(engine)
	if factory == nil {
		return fmt.Errorf("invalid engine identifier, use one of: %v", maps.Keys(ledger.GetAllRegisteredEngineFactories()))
	}

	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}
	jobCount := cliUtils.JobsFlag.Fetch(context)
	maxErrors := cliUtils.MaxErrorsFlag.Fetch(context)

	if context.Args().Len() == 0 {
		return fmt.Errorf("no fixture files or directories specified")
	}
	vectors, err := loadVectors(context.Args().Slice())
	if err != nil {
		return err
	}
	vectors = FilterVectors(vectors, filter)

	issuesCollector := cliUtils.IssuesCollector{}
	verifier := ct.NewVerifier(factory, ct.WithHeaderCache(fixture.NewHeaderCache(fixture.MaxAncestors)))
	var trialCount atomic.Int64
	var skippedCount atomic.Int64

	printProgress := func(relativeTime time.Duration, rate float64, current int64) {
		fmt.Printf(
			"[t=%4d:%02d] - Processing ~%s vectors per second, total %d, trials %d, skipped %d, found issues %d\n",
			int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
			unitconv.FormatPrefix(rate, unitconv.SI, 0), current, trialCount.Load(), skippedCount.Load(), issuesCollector.NumIssues(),
		)
	}

	opVerify := func(vector *fixture.Vector) error {
		results, err := verifier.Verify(vector)
		trialCount.Add(int64(len(results)))
		if len(results) == 0 && err == nil {
			skippedCount.Add(1)
		}
		if err != nil {
			issuesCollector.AddIssue(vector.Name, err)
			if issuesCollector.NumIssues() >= maxErrors {
				return fmt.Errorf("reached limit of %d issues", maxErrors)
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Context, os.Interrupt)
	defer stop()

	fmt.Printf("Verifying %d vectors using engine %s and %d jobs ...\n", len(vectors), engine, jobCount)
	err = ForEachVector(ctx, vectors, opVerify, printProgress, jobCount)

	// Summarize the result.
	fmt.Printf("Number of executed trials: %d\n", trialCount.Load())
	if skippedCount.Load() > 0 {
		fmt.Printf("Number of vectors without supported configuration: %d\n", skippedCount.Load())
	}
	if exportErr := issuesCollector.ExportIssues(); exportErr != nil {
		err = errors.Join(err, exportErr)
	}
	if err != nil {
		return err
	}
	if issues := issuesCollector.NumIssues(); issues > 0 {
		return fmt.Errorf("failed to pass %d vectors", issues)
	}
	fmt.Printf("All vectors passed successfully!\n")
	return nil
}

// loadVectors reads the vectors of all given fixture files and directories.
func loadVectors(paths []string) ([]*fixture.Vector, error) {
	res := []*fixture.Vector{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		var vectors []*fixture.Vector
		if info.IsDir() {
			vectors, err = fixture.LoadDir(path)
		} else {
			vectors, err = fixture.LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
		res = append(res, vectors...)
	}
	return res, nil
}
