package cmd

import (
	"os"
	"path/filepath"

	"github.com/asikorin/kara/core/config"
	"github.com/asikorin/kara/core/logger"
	"github.com/asikorin/kara/core/pipeline"
	"github.com/asikorin/kara/core/shell"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	cfgPath string
	command string
)

func loadConfig() (*config.Configuration, error) {
	return config.LoadOrDefault(afero.NewOsFs(), cfgPath)
}

// openLogger returns the debug logger described by the configuration and a
// function releasing it.
func openLogger(cfg *config.Configuration) (*zap.Logger, func(), error) {
	if cfg.LogFile == "" {
		return logger.Nop(), func() {}, nil
	}

	fd, err := cfg.OpenLog()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(fd, cfg.LogLevel)
	if err != nil {
		fd.Close()
		return nil, nil, err
	}

	return log, func() {
		_ = log.Sync()
		fd.Close()
	}, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kara [script...]",
	Short: "A small shell for command pipelines",
	Long: `kara reads command lines made of programs, pipes and redirections
and runs every stage of a pipeline as its own process.

With no arguments it reads commands from standard input, showing a prompt
when that is a terminal. Given scripts, it runs each of them line by line.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		color.NoColor = !cfg.ShouldColor(isTerminal(os.Stdout))

		log, closeLog, err := openLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		var relay *pipeline.Relay
		session, err := pipeline.NewSession(
			pipeline.WithLogger(log),
			pipeline.WithRedirectPolicy(pipeline.RedirectPolicy(cfg.RedirectPolicy)),
			pipeline.WithRegistryCapacity(cfg.RegistryCapacity),
			pipeline.WithExitFunc(func(code int) {
				relay.Stop()
				closeLog()
				os.Exit(code)
			}),
		)
		if err != nil {
			return err
		}
		defer session.Close()

		relay = pipeline.InstallRelay(session, log)
		defer relay.Stop()

		log.Info("shell started", zap.Int("pid", os.Getpid()), zap.String("config", cfgPath))

		sh := shell.New(session)
		switch {
		case command != "":
			sh.RunLine(command)
			return nil
		case len(args) > 0:
			return sh.RunScript(args...)
		default:
			sh.Interactive = isTerminal(os.Stdin)
			return sh.Run()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "kara")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigDir(), "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit")
}
