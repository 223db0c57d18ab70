package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	smsgate "github.com/hybridz/smsgate"
	"github.com/hybridz/smsgate/config"
	"github.com/hybridz/smsgate/rest"
	"github.com/hybridz/smsgate/types"
	"github.com/hybridz/smsgate/ws"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "send":
		handleSend(os.Args[2:])
	case "watch":
		handleWatch(os.Args[2:])
	case "history":
		handleHistory(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: smsgate <command>

commands:
  send --to +NUMBER --text "message"   send an SMS
  watch                                print incoming messages as they arrive
  history --number +NUMBER             print all stored messages for a number

configuration is read from $SMSGATE_CONFIG (TOML) and SMSGATE_* env vars.`)
}

// newClient bootstraps configuration and the shared logger.
func newClient() (*smsgate.Client, *zap.Logger) {
	cfg, err := config.Load(os.Getenv("SMSGATE_CONFIG"))
	if err != nil {
		fatal(err)
	}

	logger := buildLogger()

	client, err := smsgate.New(cfg, smsgate.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	return client, logger
}

// buildLogger writes human-readable logs to stderr and, when
// SMSGATE_LOG_FILE is set, JSON logs to a size-rotated file.
func buildLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if os.Getenv("SMSGATE_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEnc),
			zapcore.Lock(os.Stderr),
			level,
		),
	}

	if path := os.Getenv("SMSGATE_LOG_FILE"); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   filepath.Clean(path),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func handleSend(args []string) {
	var to, text string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--to":
			if i+1 < len(args) {
				to = args[i+1]
				i++
			}
		case "--text":
			if i+1 < len(args) {
				text = args[i+1]
				i++
			}
		}
	}
	if to == "" || text == "" {
		fmt.Fprintln(os.Stderr, `usage: smsgate send --to +NUMBER --text "message"`)
		os.Exit(1)
	}

	client, logger := newClient()
	defer logger.Sync()

	receipt, err := client.Send(context.Background(), to, text)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("sent (message_id: %d)\n", receipt.MessageID)
}

func handleWatch(args []string) {
	client, logger := newClient()
	defer logger.Sync()

	if err := client.OnEvent(func(ev ws.Event) {
		switch ev.Type {
		case ws.EventIncoming:
			msg, err := ev.Message()
			if err != nil {
				return
			}
			fmt.Printf("[%s] %s\n", msg.PhoneNumber, msg.MessageContent)
		case ws.EventConnectionUpdate:
			cu, err := ev.Connection()
			if err != nil {
				return
			}
			logger.Info("connection update",
				zap.Bool("connected", cu.Connected),
				zap.Bool("reconnect", cu.Reconnect))
		}
	}); err != nil {
		fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func handleHistory(args []string) {
	var number string
	for i := 0; i < len(args); i++ {
		if args[i] == "--number" && i+1 < len(args) {
			number = args[i+1]
			i++
		}
	}
	if number == "" {
		fmt.Fprintln(os.Stderr, "usage: smsgate history --number +NUMBER")
		os.Exit(1)
	}

	client, logger := newClient()
	defer logger.Sync()

	httpClient, err := client.HTTP()
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	p := httpClient.Messages(number, rest.PageOptions{})

	err = p.ForEachChunk(ctx, httpClient.PageSize(), func(msgs []types.StoredMessage) error {
		for _, msg := range msgs {
			dir := "<-"
			if msg.IsOutgoing {
				dir = "->"
			}
			fmt.Printf("%s %s: %s\n", dir, msg.PhoneNumber, msg.MessageContent)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
