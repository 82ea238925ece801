package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/google/uuid"
	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/state"
	"github.com/marketchain/marketchain/foundation/blockchain/worker"
	"github.com/marketchain/marketchain/foundation/events"
	"github.com/marketchain/marketchain/foundation/logger"
	"github.com/marketchain/marketchain/foundation/nameservice"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. The terminal belongs to the tables,
	// so the logs go to a file. SIM_LOG_PATH is read here since the logger
	// exists before the configuration is parsed.
	logPath := os.Getenv("SIM_LOG_PATH")
	if logPath == "" {
		logPath = "zblock/simulator.log"
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	log, err := logger.New("SIMULATOR", logPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Chain struct {
			GenesisPath    string        `conf:"help:genesis file, overrides difficulty and trans-per-block"`
			Difficulty     int           `conf:"default:2"`
			TransPerBlock  int           `conf:"default:10"`
			SelectStrategy string        `conf:"default:fifo"`
			AutoMine       bool          `conf:"default:false,help:mine in the background through the worker"`
			MineTimeout    time.Duration `conf:"default:0s,help:abandon the run if mining takes longer, 0 waits forever"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
		Market struct {
			ID       string        `conf:"default:game1"`
			Question string        `conf:"default:Will Team A win?"`
			OptionA  string        `conf:"default:Team A"`
			OptionB  string        `conf:"default:Team B"`
			Duration time.Duration `conf:"default:60s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "prediction market chain simulator",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "SIM"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	pterm.DefaultHeader.WithFullWidth().Println("MARKETCHAIN SIMULATOR")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Accounts And Name Service

	names := []string{"alice", "bob", "charlie"}

	keys, err := loadAccounts(cfg.NameService.Folder, names)
	if err != nil {
		return fmt.Errorf("unable to load accounts: %w", err)
	}

	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	gen, err := loadGenesis(cfg.Chain.GenesisPath, cfg.Chain.Difficulty, cfg.Chain.TransPerBlock)
	if err != nil {
		return err
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Appended blocks go to the events package so the run
	// can follow the background miner.
	traceID := uuid.NewString()
	evts := events.New[state.BlockAppended]()
	defer evts.Shutdown()

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", traceID)
	}

	onBlock := func(ba state.BlockAppended) {
		n := evts.Send(ba)
		log.Infow("block appended", "traceid", traceID, "number", ba.Block.Header.Number, "rejected", len(ba.Rejected), "subscribers", n)
	}

	st, err := state.New(state.Config{
		Genesis:        gen,
		SelectStrategy: cfg.Chain.SelectStrategy,
		EvHandler:      ev,
		OnBlock:        onBlock,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	if cfg.Chain.AutoMine {
		worker.Run(st, ev)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Chain.MineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Chain.MineTimeout)
		defer cancel()
	}

	sim := simulator{
		state:    st,
		ns:       ns,
		autoMine: cfg.Chain.AutoMine,
		blocks:   evts.Acquire(traceID),
	}

	// =========================================================================
	// Market Scenario

	pterm.Info.Printfln("chain: genesis[%s] difficulty[%d] trans-per-block[%d] auto-mine[%t]", gen.Date.Format(time.DateOnly), gen.Difficulty, gen.TransPerBlock, cfg.Chain.AutoMine)

	now := uint64(time.Now().UTC().Unix())
	endTime := now + uint64(cfg.Market.Duration/time.Second)
	alice, bob, charlie := keys["alice"], keys["bob"], keys["charlie"]

	pterm.DefaultSection.Println("Open the market and take bets")

	steps := []func() (database.SignedTx, error){
		func() (database.SignedTx, error) {
			return database.NewCreateMarketTx(alice, now, cfg.Market.ID, cfg.Market.Question, cfg.Market.OptionA, cfg.Market.OptionB, endTime)
		},
		func() (database.SignedTx, error) {
			return database.NewPlaceBetTx(alice, now+1, cfg.Market.ID, database.OptionA, 100)
		},
		func() (database.SignedTx, error) {
			return database.NewPlaceBetTx(bob, now+2, cfg.Market.ID, database.OptionB, 50)
		},
		func() (database.SignedTx, error) {
			return database.NewPlaceBetTx(charlie, now+3, cfg.Market.ID, database.OptionB, 100)
		},
	}
	if err := sim.submit(steps...); err != nil {
		return err
	}

	if err := sim.mine(ctx); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Reject a bet after the market ends")

	late, err := database.NewPlaceBetTx(bob, endTime, cfg.Market.ID, database.OptionA, 10)
	if err != nil {
		return err
	}
	if err := st.SubmitTx(late); err != nil {
		pterm.Warning.Printfln("%s: %s", ns.Lookup(late.FromID), err)
	}

	pterm.DefaultSection.Println("Resolve the market")

	err = sim.submit(func() (database.SignedTx, error) {
		return database.NewResolveMarketTx(alice, now+4, cfg.Market.ID, database.OptionA)
	})
	if err != nil {
		return err
	}

	if err := sim.mine(ctx); err != nil {
		return err
	}

	// =========================================================================
	// Results

	if err := st.ValidateChain(); err != nil {
		return fmt.Errorf("chain failed validation: %w", err)
	}
	pterm.Success.Printfln("chain is valid: blocks[%d]", st.Chain().Len())

	printChain(st.Chain(), ns)

	market, err := st.Market(cfg.Market.ID)
	if err != nil {
		return err
	}

	payouts, err := st.CalculatePayouts(cfg.Market.ID)
	if err != nil {
		return err
	}

	printPayouts(market, payouts, ns)

	return nil
}
