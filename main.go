package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"network-assistant/adapters"
	"network-assistant/application"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var Flags = []cli.Flag{
	FlagLogLevel,
	FlagLogWriter,
	FlagConfig,
	FlagEnvFile,
	FlagMQTTClientID,
	FlagMQTTUsername,
	FlagMQTTPassword,
}

type appConfig struct {
	Name    string
	Version string

	Tree application.ConfigTree
}

func main() {
	var (
		logger zerolog.Logger
		config appConfig
	)

	app := cli.App{
		Name:    "network-assistant",
		Usage:   "report interface addresses over MQTT and collect the reports",
		Version: "v0.1.0",
		Flags:   Flags,
		Before: func(ctx *cli.Context) error {
			if err := godotenv.Load(ctx.String(FlagEnvFile.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			tree, err := adapters.LoadConfigFile(ctx.String(FlagConfig.Name))
			if err != nil {
				return err
			}
			config.Tree = tree

			appSection := tree.Section("app")
			if config.Name, err = appSection.String("name", application.DefaultClientName); err != nil {
				return err
			}
			if config.Version, err = appSection.String("version", "v0.0.0"); err != nil {
				return err
			}

			logger, err = newLogger(ctx, tree.Section("logger"))
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "client",
				Usage: "publish this host's interface address once",
				Flags: []cli.Flag{FlagInterface},
				Action: func(ctx *cli.Context) error {
					return runClient(ctx, config, logger)
				},
			},
			{
				Name:  "server",
				Usage: "subscribe and log reports until interrupted",
				Action: func(ctx *cli.Context) error {
					return runServer(ctx, config, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Err(err).Msg("service terminated")
		os.Exit(1)
	}
}

// newLogger builds the root logger. Flags win over the [logger] section
// only when set explicitly.
func newLogger(ctx *cli.Context, section application.ConfigTree) (zerolog.Logger, error) {
	writer, err := section.String("writer", ctx.String(FlagLogWriter.Name))
	if err != nil {
		return zerolog.Nop(), err
	}
	if ctx.IsSet(FlagLogWriter.Name) {
		writer = ctx.String(FlagLogWriter.Name)
	}

	levelName, err := section.String("level", ctx.String(FlagLogLevel.Name))
	if err != nil {
		return zerolog.Nop(), err
	}
	if ctx.IsSet(FlagLogLevel.Name) {
		levelName = ctx.String(FlagLogLevel.Name)
	}

	var logWriter io.Writer
	switch writer {
	case "console":
		logWriter = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		}
	case "json":
		logWriter = os.Stderr
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log writer %q", writer)
	}

	logger := zerolog.New(logWriter).With().Timestamp().
		Str("service", "network-assistant").
		Str("module", "main").
		Logger()

	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), err
	}

	zerolog.SetGlobalLevel(level)

	return logger, nil
}

func newTransmitter(ctx *cli.Context, config appConfig, queue application.MessageQueue, logger zerolog.Logger) (*adapters.MQTTTransmitter, error) {
	conn, topics, err := application.ConnectionConfigFromTree(config.Tree.Section("mqtt"))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(FlagMQTTClientID.Name) {
		conn.ClientID = ctx.String(FlagMQTTClientID.Name)
	}
	if ctx.IsSet(FlagMQTTUsername.Name) {
		conn.Username = ctx.String(FlagMQTTUsername.Name)
	}
	if ctx.IsSet(FlagMQTTPassword.Name) {
		conn.Password = ctx.String(FlagMQTTPassword.Name)
	}

	logger.Info().Msgf("mqtt broker: %s", conn.BrokerURL())
	return adapters.NewMQTTTransmitter(adapters.MQTTTransmitterParams{
		Connection: conn,
		Topics:     topics,
		Queue:      queue,
		Log:        logger.With().Str("module", "transmitter").Logger(),
	})
}

func runClient(ctx *cli.Context, config appConfig, logger zerolog.Logger) error {
	logger.Info().Msgf("start %s client %s", config.Name, config.Version)

	clientSection := config.Tree.Section("client")
	name, err := clientSection.String("name", config.Name)
	if err != nil {
		return err
	}
	iface, err := clientSection.String("interface", application.DefaultInterface)
	if err != nil {
		return err
	}
	if ctx.IsSet(FlagInterface.Name) {
		iface = ctx.String(FlagInterface.Name)
	}

	transmitter, err := newTransmitter(ctx, config, adapters.NewMessageQueue(), logger)
	if err != nil {
		return err
	}

	reporter, err := application.NewReporterService(application.ReporterServiceParams{
		Transmitter: transmitter,
		Resolver:    adapters.NewInterfaceAddressResolver(),
		Name:        name,
		Interface:   iface,
		Log:         logger.With().Str("module", "reporter").Logger(),
	})
	if err != nil {
		transmitter.Stop()
		return err
	}

	return reporter.Run(ctx.Context)
}

func runServer(ctx *cli.Context, config appConfig, logger zerolog.Logger) error {
	logger.Info().Msgf("start %s server %s", config.Name, config.Version)

	appCtx, cancel := context.WithCancel(logger.WithContext(ctx.Context))
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		select {
		case <-c:
			logger.Warn().Msg("interrupt signal received")
			cancel()
		case <-appCtx.Done():
		}
	}()

	queue := adapters.NewMessageQueue()
	transmitter, err := newTransmitter(ctx, config, queue, logger)
	if err != nil {
		return err
	}

	collector, err := application.NewCollectorService(application.CollectorServiceParams{
		Transmitter: transmitter,
		Queue:       queue,
		Log:         logger.With().Str("module", "collector").Logger(),
	})
	if err != nil {
		transmitter.Stop()
		return err
	}

	logger.Info().Msg("service started")
	return collector.Run(appCtx)
}
