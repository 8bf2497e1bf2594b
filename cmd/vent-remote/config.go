package main

import (
	"io"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sweeney/vent-remote/internal/gpio"
)

// pinConfig mirrors gpio.Pins for the command line and INI file.
type pinConfig struct {
	Level1   int `long:"level1" description:"BCM pin of the low power button"`
	Level2   int `long:"level2" description:"BCM pin of the mid power button"`
	Level3   int `long:"level3" description:"BCM pin of the high power button"`
	Auto     int `long:"auto" description:"BCM pin of the automatic mode button"`
	Timer    int `long:"timer" description:"BCM pin of the timer button"`
	Absent   int `long:"absent" description:"BCM pin of the absence mode button"`
	Positive int `long:"positive" description:"BCM pin of the green indicator"`
	Fault    int `long:"fault" description:"BCM pin of the red indicator"`
	Busy     int `long:"busy" description:"BCM pin of the busy lamp (-1 to disable)"`
}

func (p pinConfig) pins() gpio.Pins {
	return gpio.Pins(p)
}

type config struct {
	ConfigFile  string    `long:"config" description:"Path to an INI configuration file"`
	Chip        string    `long:"chip" description:"GPIO chip name"`
	Pins        pinConfig `group:"Pins" namespace:"pin"`
	Broker      string    `long:"broker" description:"MQTT broker address (empty to disable)"`
	ClientID    string    `long:"client-id" description:"MQTT client id"`
	HTTPAddr    string    `long:"http" description:"HTTP status address (empty to disable)"`
	NoConsole   bool      `long:"no-console" description:"Do not read commands from stdin"`
	Debug       bool      `long:"debug" description:"Log per-press and per-state detail"`
	LogFile     string    `long:"logfile" description:"Also write the log to this file, rotated"`
	ShowVersion bool      `short:"V" long:"version" description:"Display version information and exit"`
}

// defaultConfig holds the defaults. They are preset values rather than
// default tags so an INI file is not overwritten by the second flag pass.
func defaultConfig() *config {
	return &config{
		Chip:     "gpiochip0",
		Pins:     pinConfig(gpio.DefaultPins),
		Broker:   "tcp://192.168.1.200:1883",
		ClientID: "vent-remote",
		HTTPAddr: ":80",
	}
}

// loadConfig parses args, then the INI file if one is named, then args again
// so the command line wins.
func loadConfig(args []string) (*config, error) {
	pre := defaultConfig()
	if _, err := newParser(pre, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}
	if pre.ConfigFile == "" {
		return pre, nil
	}

	cfg := defaultConfig()
	parser := newParser(cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(pre.ConfigFile); err != nil {
		return nil, errors.Wrapf(err, "read config %s", pre.ConfigFile)
	}
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newParser(cfg *config, opts flags.Options) *flags.Parser {
	p := flags.NewParser(cfg, opts)
	p.NamespaceDelimiter = "-"
	return p
}

// setupLogging configures the global logger. The returned closer flushes the
// log file, if any.
func setupLogging(cfg *config, stdout io.Writer) io.Closer {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.LogFile == "" {
		log.SetOutput(stdout)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	log.SetOutput(io.MultiWriter(stdout, file))
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
