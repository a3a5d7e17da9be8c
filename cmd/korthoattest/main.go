package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/korthochain/korthoattest/pkg/config"
	"github.com/korthochain/korthoattest/pkg/dht"
	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/korthochain/korthoattest/pkg/p2p"
	"github.com/korthochain/korthoattest/pkg/server/attestserver"
	"github.com/korthochain/korthoattest/pkg/storage/store/bg"
	"github.com/korthochain/korthoattest/pkg/util/ntp"
	"github.com/korthochain/korthoattest/pkg/wallet"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const version = "korthoattest 0.1.0"

var usage = `korthoattest
Stores, serves and gossips Boneh bit-pair attestations.

Usage:
  korthoattest [--config=<path>] [--debug]
  korthoattest -h | --help
  korthoattest --version

Options:
  -h --help          Show this screen.
  --version          Show version.
  --config=<path>    Configuration file, defaults to ./korthoattest.yaml or ./config/korthoattest.yaml.
  --debug            Log at debug level to stdout as well.`

func main() {
	args, err := docoptParse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error while parsing options err: %s\n", err)
		os.Exit(1)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "korthoattest: %s\n", err)
		os.Exit(1)
	}
}

func docoptParse(argv []string) (map[string]interface{}, error) {
	return docopt.Parse(usage, argv, true, version, false)
}

func run(args map[string]interface{}) error {
	path, _ := args["--config"].(string)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if debug, _ := args["--debug"].(bool); debug {
		cfg.LogConfig.Level = "debug"
		cfg.LogConfig.Stdout = true
	}

	if err := logger.InitLogger(cfg.LogConfig); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := bg.Open(cfg.StorageConfig.Dir, logger.Logger.Named("badger"))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now
	if cfg.NtpConfig.Enable {
		clock := ntp.NewClock(cfg.NtpConfig.Servers, cfg.NtpConfig.Interval)
		go clock.Run(ctx)
		now = clock.Now
	}

	wcfg := wallet.DefaultConfig()
	wcfg.CacheSize = cfg.StorageConfig.CacheSize
	wcfg.Now = now
	wcfg.Logger = logger.Logger
	w := wallet.New(db, wcfg)

	nodeKey, err := loadNodeKey(db)
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}

	pconf := p2p.DefaultConfig()
	if cfg.P2PConfig.NodeName != "" {
		pconf.NodeName = cfg.P2PConfig.NodeName
	}
	pconf.PrivateKey = nodeKey
	pconf.MessageBuffer = cfg.P2PConfig.MessageBuffer
	pconf.RateLimit = rate.Limit(cfg.P2PConfig.RateLimit)
	pconf.RateBurst = cfg.P2PConfig.RateBurst
	pconf.Logger = logger.Logger.Named("p2p")
	pconf.MemberlistConfig.AdvertiseAddr = cfg.P2PConfig.AdvertiseAddr
	pconf.MemberlistConfig.AdvertisePort = cfg.P2PConfig.Port
	pconf.MemberlistConfig.BindPort = cfg.P2PConfig.Port
	pconf.HandleFunc = func(buf []byte) error {
		id, _, err := w.PutBytes(buf)
		if err == nil {
			logger.Debug("received attestation", zap.String("id", id.String()))
		}
		return err
	}

	node, err := p2p.Create(pconf, db)
	if err != nil {
		return fmt.Errorf("create p2p node: %w", err)
	}
	defer node.Shutdown()
	logger.Info("p2p node started", zap.String("name", node.Name()), zap.String("address", node.Address()))

	if len(cfg.P2PConfig.JoinMembers) > 0 {
		n, err := node.Join(cfg.P2PConfig.JoinMembers)
		if err != nil {
			logger.Warn("failed to join cluster", zap.Strings("members", cfg.P2PConfig.JoinMembers), zap.Error(err))
		} else {
			logger.Info("joined cluster", zap.Int("contacted", n))
		}
	}

	provider := dht.NewProvider(node, cfg.P2PConfig.Port)
	pub := &announcer{
		node:     node,
		provider: provider,
		self: dht.Peer{
			PublicKey: append([]byte(dht.KeyPrefix), node.PublicKey()...),
			Address:   &net.UDPAddr{IP: net.ParseIP(cfg.P2PConfig.AdvertiseAddr)},
		},
		now: now,
	}

	scfg := attestserver.DefaultConfig()
	scfg.Address = cfg.ServerConfig.Address
	scfg.MaxBodySize = cfg.ServerConfig.MaxBodySize
	srv := attestserver.NewServer(w, pub, scfg)
	srv.SetLocator(provider)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.RunServer()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	if err := srv.Shutdown(); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := node.Leave(); err != nil {
		logger.Warn("leave cluster", zap.Error(err))
	}
	return nil
}
