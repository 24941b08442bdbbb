package cmd

import (
	"errors"
	"io/fs"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "cross-swap-api",
	Short: "Cross-chain swap quote and transaction service",
	Long: `cross-swap-api quotes swap + bridge routes between EVM chains and Solana
and returns ready-to-sign origin transactions.

Examples:
  cross-swap-api serve -f etc/config.yaml
  cross-swap-api quote --amount 1000000 --input-token USDC --output-token USDC \
    --origin-chain 1 --destination-chain 10 --depositor 0x...`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/config.yaml", "the config file")
}

// loadConfig reads .env (if present), the yaml config and sets up logging.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	c, err := config.LoadFromFile(configFile)
	if err != nil {
		return nil, err
	}

	err = logger.Setup(logger.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
