// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	eventDBFlag = cli.StringFlag{
		Name:  "eventdb",
		Value: "",
		Usage: "path to the event database, in-memory if empty",
	}
	scenarioFlag = cli.StringFlag{
		Name:  "scenario",
		Usage: "path to a YAML scenario to replay",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 2,
		Usage: "log verbosity (0-3)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "serve prometheus metrics on /metrics",
	}
)
