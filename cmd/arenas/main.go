package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/boristopalov/arenas/internal/logging"
	"github.com/boristopalov/arenas/pkg/config"
	"github.com/boristopalov/arenas/pkg/environment"
	"github.com/boristopalov/arenas/pkg/episode"
	"github.com/boristopalov/arenas/pkg/journal"
	"github.com/boristopalov/arenas/pkg/layout"
	"github.com/boristopalov/arenas/pkg/messaging"
	"github.com/boristopalov/arenas/pkg/world"
)

func main() {
	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "arenas",
		Short:        "Arenas runs multi-arena goal-spawning training environments.",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run [--playerMode N] [--numberOfArenas N] [--resolution R] [--grayscale] [--useRayCasts] ...",
		Short: "Resolve the environment from process arguments and run episodes",
		// environment arguments are scanned raw; our own flags are parsed in runEnvironment
		DisableFlagParsing: true,
		RunE:               runEnvironment,
	}

	validateCmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check an arenas YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  validateArenas,
	}

	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the arena grid for a number of arenas",
		RunE:  printLayout,
	}
	layoutCmd.Flags().Int(config.ParamNumberOfArenas, 1, "number of arenas")
	layoutCmd.Flags().String("template", world.ArenaTemplate, "arena template")

	rootCmd.AddCommand(runCmd, validateCmd, layoutCmd)
	return rootCmd
}

type runOptions struct {
	defaultsPath  string
	arenasPath    string
	episodes      int
	episodeLength time.Duration
	realtime      bool
	editor        bool
	logLevel      string
}

func parseRunOptions(args []string) (runOptions, error) {
	var opts runOptions
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.StringVar(&opts.defaultsPath, "defaults", "", "TOML file overriding compiled defaults")
	fs.StringVar(&opts.arenasPath, "arenas", "", "arenas YAML file")
	fs.IntVar(&opts.episodes, "episodes", 1, "number of episodes")
	fs.DurationVar(&opts.episodeLength, "episode-length", 30*time.Second, "length of each episode")
	fs.BoolVar(&opts.realtime, "realtime", false, "run against wall time instead of simulating")
	fs.BoolVar(&opts.editor, "editor", false, "apply interactive editor overrides")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (overrides "+logging.EnvLogLevel+")")
	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}
	return opts, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	cfg := logging.FromEnv(logging.DefaultConfig())
	if level != "" {
		lvl, ok := logging.ParseLevel(level)
		if !ok {
			return zerolog.Logger{}, fmt.Errorf("unknown log level %q", level)
		}
		cfg.Level = lvl
	}
	return logging.New("arenas", os.Stderr, cfg), nil
}

func runEnvironment(cmd *cobra.Command, args []string) error {
	opts, err := parseRunOptions(args)
	if errors.Is(err, pflag.ErrHelp) {
		return cmd.Help()
	}
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	defaults, err := config.LoadDefaults(opts.defaultsPath)
	if err != nil {
		return err
	}
	params, err := config.RetrieveEnvironmentParameters(args, defaults)
	if err != nil {
		return err
	}
	editor := config.DefaultEditorOverrides()
	editor.Enabled = opts.editor
	resolved, err := config.Resolve(params, defaults, editor)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	broker := messaging.NewBroker()
	defer broker.Reset()
	store := config.NewArenasConfigurations()
	j := journal.New(4096)

	env, err := environment.New(resolved, world.DefaultScene(),
		environment.WithBroker(broker),
		environment.WithStore(store),
		environment.WithJournal(j),
		environment.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}
	defer env.Close()

	if opts.arenasPath != "" {
		if err := deliverArenas(env, store, opts.arenasPath, resolved.ReceiveConfiguration); err != nil {
			return err
		}
	}

	runner, err := episode.NewRunner(env,
		episode.WithEpisodes(opts.episodes),
		episode.WithLength(opts.episodeLength),
		episode.WithRealtime(opts.realtime),
		episode.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Info().Str("run", runner.GetID()).Int("episodes", opts.episodes).Dur("length", opts.episodeLength).Msg("starting run")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run failed: %w", err)
	}

	status := runner.GetStatus()
	logger.Info().
		Int("episodes", status.Episode).
		Int("spawned", j.Count(journal.KindSpawn)).
		Int("released", j.Count(journal.KindRelease)).
		Int("dormant", j.Count(journal.KindDormant)).
		Dur("took", status.EndTime.Sub(status.StartTime)).
		Msg("run finished")
	return nil
}

// deliverArenas sends the file through the side channel when the
// environment expects external configuration, and loads it directly
// otherwise.
func deliverArenas(env *environment.Manager, store *config.ArenasConfigurations, path string, viaChannel bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read arenas %s: %w", path, err)
	}
	if viaChannel {
		return env.Channel().Send(data)
	}
	return store.UpdateWithConfigurationsReceived(data)
}

func validateArenas(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	arenas, err := config.ParseArenas(data)
	if err != nil {
		return err
	}
	store := config.NewArenasConfigurations()
	for id, c := range arenas {
		if err := store.Add(id, c); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	for _, id := range store.IDs() {
		c := store.Get(id)
		fmt.Fprintf(out, "arena %d: t=%d pass_mark=%g spawners=%d\n", id, c.TimeLimit, c.PassMark, len(c.Spawners))
	}
	fmt.Fprintf(out, "%s: %d arenas ok\n", args[0], len(arenas))
	return nil
}

func printLayout(cmd *cobra.Command, args []string) error {
	count, err := cmd.Flags().GetInt(config.ParamNumberOfArenas)
	if err != nil {
		return err
	}
	template, err := cmd.Flags().GetString("template")
	if err != nil {
		return err
	}
	extents, err := world.DefaultScene().Extents(template)
	if err != nil {
		return err
	}
	plan, err := layout.NewPlan(extents, count)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "grid %dx%d, cell %.1fx%.1f\n", plan.Columns, plan.Rows, plan.CellWidth, plan.CellDepth)
	for _, p := range plan.Placements {
		fmt.Fprintf(out, "arena %d (%d,%d) at %.1f %.1f %.1f\n",
			p.ID, p.Column, p.Row, p.Position.X(), p.Position.Y(), p.Position.Z())
	}
	fmt.Fprintf(out, "observer at %.1f %.1f %.1f\n", plan.Observer.X(), plan.Observer.Y(), plan.Observer.Z())
	return nil
}
