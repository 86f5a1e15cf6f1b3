package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/config"
	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/relay"
	"billboard-realtime/internal/server"
	"billboard-realtime/internal/socketio"
	"billboard-realtime/internal/store"

	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
)

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"required,oneof=debug info warn error"`
	ConfigFile string `validate:"omitempty,file"`
}

var cmdArgs cliArgs

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var logTags = log.Fields{
	"module":    "main",
	"component": "main",
}

func main() {
	app := &cli.App{
		Name:        "billboard-realtime",
		Usage:       "real-time delivery for billboard marketplace conversations and notifications",
		Version:     version,
		Description: "Socket.IO fan-out of persisted messages, read receipts, typing, presence and notifications",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				Destination: &cmdArgs.JSONLog,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "info",
				Destination: &cmdArgs.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "Optional config file; environment variables override it",
				Aliases:     []string{"c"},
				EnvVars:     []string{"CONFIG_FILE"},
				Destination: &cmdArgs.ConfigFile,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP and Socket.IO server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

func setupLogging() {
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch cmdArgs.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func loadConfig() (config.Config, error) {
	if err := validator.New().Struct(&cmdArgs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid CMD args")
		return config.Config{}, err
	}
	setupLogging()

	config.LoadDotEnv()
	cfg, err := config.Load(cmdArgs.ConfigFile)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid configuration")
		return config.Config{}, err
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DatabaseDriver, err)
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func migrate(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	log.WithFields(logTags).Infof("Migrated %s database", cfg.DatabaseDriver)
	return st.Close()
}

func newRelay(ctx context.Context, cfg config.Config) (*relay.Relay, error) {
	switch cfg.RelayBackend {
	case config.RelayRedis:
		backend, err := relay.NewRedis(ctx, cfg.RedisURL, cfg.RelaySubject)
		if err != nil {
			return nil, err
		}
		return relay.New(backend, relay.DefaultOutbox), nil
	case config.RelayNATS:
		backend, err := relay.NewNATS(relay.NATSParams{ServerURI: cfg.NATSURL, Subject: cfg.RelaySubject})
		if err != nil {
			return nil, err
		}
		return relay.New(backend, relay.DefaultOutbox), nil
	default:
		return nil, nil
	}
}

func serve(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fanout, err := newRelay(ctx, cfg)
	if err != nil {
		return fmt.Errorf("relay %s: %w", cfg.RelayBackend, err)
	}

	transports := hub.NewTransportTable()
	deps := hub.Deps{Oracle: st, Transports: transports, InstanceID: cfg.InstanceID}
	if fanout != nil {
		deps.Relay = fanout
	}
	h := hub.New(deps)
	logTags["instance"] = h.InstanceID()

	var wg sync.WaitGroup
	defer wg.Wait()
	if fanout != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fanout.Run(ctx, h.DeliverRemote); err != nil {
				log.WithError(err).WithFields(logTags).Error("Relay exited")
			}
		}()
	}

	tokenCfg := auth.DefaultTokenConfig(cfg.JWTSecret)
	tokenCfg.Expiry = cfg.TokenExpiry()

	sio := socketio.NewServer(socketio.Deps{
		Hub:         h,
		Transports:  transports,
		Receipts:    st,
		TokenConfig: tokenCfg,
		Options: socketio.Options{
			TrustClientIdentity:  cfg.TrustClientIdentity,
			AllowClientBroadcast: cfg.AllowClientBroadcast,
		},
	})
	router := server.NewRouter(server.Deps{
		Store:           st,
		Hub:             h,
		SocketIO:        sio,
		TokenConfig:     tokenCfg,
		Version:         version,
		EnableDevTokens: cfg.EnableDevTokens,
	})

	log.WithFields(logTags).Infof("Listening on %s (relay %s)", cfg.Addr(), cfg.RelayBackend)
	err = server.Run(ctx, cfg, router)
	stop()
	return err
}
