package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/harrybrwn/config"
	"github.com/harrybrwn/scout/cmd"
	"github.com/harrybrwn/scout/crawler"
	"github.com/harrybrwn/scout/internal/logging"
	"github.com/harrybrwn/scout/internal/tracing"
	"github.com/harrybrwn/scout/locations"
	"github.com/harrybrwn/scout/mirrors"
	"github.com/harrybrwn/scout/storage"
	"github.com/harrybrwn/scout/web"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// sessionID names this run in the page cache and in traces.
var sessionID string

var (
	log     = logrus.New()
	logfile = lumberjack.Logger{
		Filename:   "scout.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	}
)

func main() {
	godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := NewCLIRoot().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewCLIRoot() *cobra.Command {
	var (
		configfile string
		noColor    bool
		noLogFile  bool
		conf       cmd.Config
		tp         *tracesdk.TracerProvider
	)
	c := &cobra.Command{
		Use:           "scout",
		Short:         "Find package download links across indexes, mirrors and local directories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Parse the loglevel before reading the config file
			var (
				lvl   = logrus.InfoLevel
				level = conf.LogLevel
				err   error
			)
			if conf.LogLevel != "" {
				lvl = conf.GetLevel()
			}
			if err = prerun(configfile, &conf); err != nil {
				return err
			}
			// If logLevel has changed in the config file but not as a flag
			// then parse the config file log level.
			if level != conf.LogLevel && !cmd.Flags().Lookup("loglevel").Changed {
				lvl = conf.GetLevel()
			}
			initLogger(cmd.ErrOrStderr(), noColor, noLogFile, lvl)
			sessionID = storage.NewSessionID()
			tp, err = tracing.Provider(&conf.Tracer, tracing.Resource("scout", sessionID, &conf))
			if err != nil {
				return errors.Wrap(err, "could not start tracing")
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if tp == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	}
	flags := c.PersistentFlags()
	flags.StringVar(&conf.LogLevel, "loglevel", conf.LogLevel, "set log level")
	flags.StringVarP(&configfile, "config", "c", configfile, "use a different config file")
	flags.BoolVar(&noColor, "no-color", noColor, "disable output colors")
	flags.BoolVar(&noLogFile, "no-log-file", noLogFile, "do not write logs to a file")

	confcmd := config.NewConfigCommand()
	config.SetDefaultCommandFlags(confcmd)
	c.AddCommand(
		newFindCmd(&conf),
		newListCmd(&conf),
		newMirrorsCmd(&conf),
		cmd.NewVersionCmd(),
		confcmd,
	)
	c.SetOut(os.Stdout)
	c.SetErr(os.Stderr)
	c.SetUsageTemplate(config.IndentedCobraHelpTemplate)
	conf.Bind(c.PersistentFlags())
	return c
}

func prerun(configfile string, conf *cmd.Config) error {
	if configfile != "" {
		dir, file := filepath.Split(configfile)
		if dir == "" {
			dir = "."
		}
		if file == "" {
			return errors.New("no config file given")
		}
		config.AddPath(dir)
		config.AddFile(file)
	}
	config.AddUserConfigDir("scout")
	config.AddFile("scout.yml")
	config.AddFile("config.yml")
	config.AddPath(".")
	config.SetType("yaml")
	config.SetConfig(conf)
	err := config.InitDefaults()
	if err != nil {
		return errors.Wrap(err, "could not set config defaults")
	}

	err = config.ReadConfig()
	switch err {
	case nil:
		break
	case config.ErrNoConfigFile:
		log.WithFields(logrus.Fields{"error": err}).Debug("could not read config file")
	default:
		return errors.Wrap(err, "could not read config")
	}
	if conf.Timeout <= 0 {
		conf.Timeout = 15 * time.Second
	}
	if conf.Cache.Redis.TTL <= 0 {
		conf.Cache.Redis.TTL = time.Hour
	}
	return nil
}

func initLogger(out io.Writer, nocolor, nofile bool, lvl logrus.Level) {
	maxlen := 80
	if !logging.IsTerm(out) {
		nocolor = true
		maxlen = 1
	}
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.TraceLevel)
	log.SetFormatter(&logging.PrefixedFormatter{
		TimeFormat:       time.Stamp,
		MaxMessageLength: maxlen,
		NoColor:          nocolor,
	})
	if !nofile {
		if dir, err := os.UserCacheDir(); err == nil {
			logfile.Filename = filepath.Join(dir, "scout", "scout.log")
		}
		log.AddHook(logging.NewLogFileHook(&logfile, &logrus.TextFormatter{
			DisableColors:   true,
			PadLevelText:    true,
			TimestampFormat: time.RFC3339,
		}))
	}
	log.AddHook(&logging.Hook{
		Writer:    out,
		LogLevels: logrus.AllLevels[:lvl+1],
	})
	web.SetLogger(log)
	locations.SetLogger(log)
	mirrors.SetLogger(log)
}

func newGetter(conf *cmd.Config, s *session) *crawler.PageGetter {
	return crawler.New(
		s.cache,
		s.fetcher,
		crawler.WithWorkers(conf.Workers),
		crawler.WithLogger(log),
	)
}
