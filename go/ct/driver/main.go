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
	"fmt"
	"os"

	cliUtils "github.com/Fantom-foundation/Shardkit/go/ct/driver/cli"
	"github.com/urfave/cli/v2"

	_ "github.com/Fantom-foundation/Shardkit/go/processor/transfer"
)

func main() {
	app := &cli.App{
		Name:      "driver",
		Usage:     "Shardkit Genesis, Conformance Test and Load Generation Driver",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			cliUtils.VerbosityFlag,
		},
		Before: cliUtils.VerbosityFlag.Install,
		Commands: []*cli.Command{
			&GenesisCmd,
			&VerifyCmd,
			&LoadgenCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
