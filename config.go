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

const (
	timeoutSkip  = "skip"
	timeoutEject = "eject"
	timeoutAbort = "abort"

	revealAll  = "all"
	revealHost = "host"
)

type Config struct {
	bind             string
	maxPlayers       int
	playerTimeout    time.Duration
	port             int
	prefix           string
	profile          bool
	revealInterval   time.Duration
	revealTrigger    string
	seed             uint64
	selectionTimeout time.Duration
	sessionTimeout   time.Duration
	songsPerPlayer   int
	timeoutAction    string
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.songsPerPlayer < 1 {
		return fmt.Errorf("invalid songs-per-player (must be at least 1): %d", c.songsPerPlayer)
	}
	if c.maxPlayers < 2 {
		return fmt.Errorf("invalid max-players (must be at least 2): %d", c.maxPlayers)
	}
	switch c.timeoutAction {
	case timeoutSkip, timeoutEject, timeoutAbort:
	default:
		return fmt.Errorf("invalid timeout-action (must be skip, eject, or abort): %s", c.timeoutAction)
	}
	switch c.revealTrigger {
	case revealAll, revealHost:
	default:
		return fmt.Errorf("invalid reveal-trigger (must be all or host): %s", c.revealTrigger)
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
	v.SetEnvPrefix("SONGFEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "songfest",
		Short:         "A Eurovision-style song contest party game, played in rooms over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			configureLogging(cfg)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SONGFEST_BIND)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 8, "default player cap for new rooms (env: SONGFEST_MAX_PLAYERS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed (env: SONGFEST_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SONGFEST_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SONGFEST_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SONGFEST_PROFILE)")
	fs.DurationVar(&cfg.revealInterval, "reveal-interval", 1500*time.Millisecond, "pause between revealed votes, 0 for no pacing (env: SONGFEST_REVEAL_INTERVAL)")
	fs.StringVar(&cfg.revealTrigger, "reveal-trigger", revealAll, "when results begin: all (every ballot in) or host (host may force) (env: SONGFEST_REVEAL_TRIGGER)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "fixed seed for song shuffling, 0 for random per room (env: SONGFEST_SEED)")
	fs.DurationVar(&cfg.selectionTimeout, "selection-timeout", 300*time.Second, "per-player budget for picking songs (env: SONGFEST_SELECTION_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are ended (env: SONGFEST_SESSION_TIMEOUT)")
	fs.IntVar(&cfg.songsPerPlayer, "songs-per-player", 5, "songs each player must contribute (env: SONGFEST_SONGS_PER_PLAYER)")
	fs.StringVar(&cfg.timeoutAction, "timeout-action", timeoutSkip, "policy when a player's selection budget expires: skip, eject, or abort (env: SONGFEST_TIMEOUT_ACTION)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SONGFEST_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SONGFEST_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SONGFEST_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SONGFEST_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("songfest v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
