// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakewheel/stakewheel/api"
	"github.com/stakewheel/stakewheel/authority"
	"github.com/stakewheel/stakewheel/eventdb"
	"github.com/stakewheel/stakewheel/log"
	"github.com/stakewheel/stakewheel/metrics"
	"github.com/stakewheel/stakewheel/pool"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/state"
	"github.com/stakewheel/stakewheel/token"
	"github.com/stakewheel/stakewheel/wheel"
)

var (
	version   string
	gitCommit string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Stakewheel",
		Usage:     "proportional reward-accounting engine for a pooled staking ledger",
		Copyright: "2025 The Stakewheel developers",
		Flags: []cli.Flag{
			apiAddrFlag,
			eventDBFlag,
			scenarioFlag,
			verbosityFlag,
			enableMetricsFlag,
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	st := state.NewMem()
	poolAddr := wheel.BytesToAddress(wheel.Blake2b([]byte("stakewheel-pool")).Bytes()[12:])

	ledger := token.NewMemLedger(poolAddr)
	gate := authority.NewAllowlist(slots.NewContext(poolAddr, st))
	p := pool.New(poolAddr, st, ledger, gate)
	if err := p.Initialize(0); err != nil {
		return err
	}

	db, err := openEventDB(ctx)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing event database..."); db.Close() }()

	p.Subscribe(db.Sink(
		func() uint64 { return uint64(time.Now().Unix()) },
		func(err error) { logger.Error("failed to record event", "err", err) },
	))

	if path := ctx.String(scenarioFlag.Name); path != "" {
		if err := runScenario(path, p, ledger, gate); err != nil {
			return err
		}
	}

	srv, apiURL, err := startAPIServer(ctx, api.New(p, api.Options{
		EnableMetrics: ctx.Bool(enableMetricsFlag.Name),
	}))
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); srv.Shutdown(context.Background()) }()

	printStartupMessage(apiURL, ctx.String(eventDBFlag.Name))

	<-handleExitSignal()
	return nil
}

func initLogger(ctx *cli.Context) {
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		log.SetLevel(slog.LevelError)
	case 1:
		log.SetLevel(slog.LevelWarn)
	case 2:
		log.SetLevel(slog.LevelInfo)
	default:
		log.SetLevel(slog.LevelDebug)
	}
}

func openEventDB(ctx *cli.Context) (*eventdb.EventDB, error) {
	if path := ctx.String(eventDBFlag.Name); path != "" {
		return eventdb.New(path)
	}
	return eventdb.NewMem()
}

func runScenario(path string, p *pool.Pool, ledger *token.MemLedger, gate *authority.Allowlist) error {
	s, err := loadScenario(path)
	if err != nil {
		return err
	}
	actors, err := s.Actors()
	if err != nil {
		return err
	}
	admin := actors[0]

	if err := gate.Grant(admin, authority.OpDistributeReward); err != nil {
		return err
	}
	if err := gate.Grant(admin, authority.OpChangeLockPeriod); err != nil {
		return err
	}

	// fund every actor far beyond what any scenario can spend
	funding := new(big.Int).Lsh(big.NewInt(1), 200)
	for _, actor := range actors {
		ledger.Mint(actor, funding)
		ledger.Approve(actor, funding)
	}

	if s.LockPeriod != nil {
		if err := p.ChangeLockPeriod(admin, *s.LockPeriod); err != nil {
			return err
		}
	}

	logger.Info("replaying scenario", "path", path, "actions", len(s.Actions))
	if err := replay(s, p, admin); err != nil {
		return err
	}
	logger.Info("scenario complete")
	return nil
}

func startAPIServer(ctx *cli.Context, handler http.HandlerFunc) (*http.Server, string, error) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen API addr [%v]: %w", addr, err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			logger.Error("API server stopped", "err", err)
		}
	}()
	return srv, "http://" + listener.Addr().String() + "/", nil
}

func handleExitSignal() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
		sig := <-exit
		logger.Info("exit signal received", "signal", sig)
		close(done)
	}()
	return done
}

func printStartupMessage(apiURL, eventDBPath string) {
	if eventDBPath == "" {
		eventDBPath = "(in-memory)"
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf(`Starting %v
    Version     %v
    API portal  %v
    Event DB    %v
`, "Stakewheel", fullVersion(), apiURL, eventDBPath)
	} else {
		logger.Info("started", "version", fullVersion(), "api", apiURL, "eventdb", eventDBPath)
	}
}
