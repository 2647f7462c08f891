package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	catalog     string
	chatBurst   int
	chatHistory int
	chatWindow  time.Duration
	gracePeriod time.Duration
	port        int
	prefix      string
	profile     bool
	roomSize    int
	roundPause  time.Duration
	tlsCert     string
	tlsKey      string
	verbose     bool
	version     bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.chatHistory < 1 {
		return fmt.Errorf("invalid chat history size: %d", c.chatHistory)
	}
	if c.chatBurst < 1 {
		return fmt.Errorf("invalid chat burst limit: %d", c.chatBurst)
	}
	if c.chatWindow <= 0 {
		return fmt.Errorf("invalid chat rate window: %s", c.chatWindow)
	}
	if c.gracePeriod <= 0 {
		return fmt.Errorf("invalid grace period: %s", c.gracePeriod)
	}
	if c.roundPause < 0 {
		return fmt.Errorf("invalid round pause: %s", c.roundPause)
	}
	if c.roomSize < 1 {
		return fmt.Errorf("invalid room size: %d", c.roomSize)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMEGUESSR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gameguessr",
		Short:         "Multiplayer geo-guessing game server: shared rooms, live rounds, scored guesses.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GAMEGUESSR_BIND)")
	fs.StringVar(&cfg.catalog, "catalog", "", "path to a round catalog file, blank for the embedded one (env: GAMEGUESSR_CATALOG)")
	fs.IntVar(&cfg.chatBurst, "chat-burst", 5, "chat messages allowed per user within --chat-window (env: GAMEGUESSR_CHAT_BURST)")
	fs.IntVar(&cfg.chatHistory, "chat-history", 200, "chat messages retained per room (env: GAMEGUESSR_CHAT_HISTORY)")
	fs.DurationVar(&cfg.chatWindow, "chat-window", time.Minute, "trailing window for the chat rate limit (env: GAMEGUESSR_CHAT_WINDOW)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 10*time.Second, "time an empty room survives before deletion (env: GAMEGUESSR_GRACE_PERIOD)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GAMEGUESSR_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GAMEGUESSR_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GAMEGUESSR_PROFILE)")
	fs.IntVar(&cfg.roomSize, "room-size", 16, "maximum players per room (env: GAMEGUESSR_ROOM_SIZE)")
	fs.DurationVar(&cfg.roundPause, "round-pause", 2*time.Second, "pause between rounds before the next countdown starts (env: GAMEGUESSR_ROUND_PAUSE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GAMEGUESSR_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GAMEGUESSR_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GAMEGUESSR_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GAMEGUESSR_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gameguessr v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
