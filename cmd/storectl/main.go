// Command storectl is the operator tool: schema migrations, admin accounts, session tokens
// and demo catalog data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/app"
	"github.com/3lprints/storefront/internal/config"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/logger"
)

var Version = "dev"

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "storectl - operator tool for the 3L Prints storefront",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("driver", "", "database driver (mysql, postgres, sqlite3); overrides DB_DRIVER")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN; overrides DB_DSN")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")
	_ = v.BindPFlags(rootCmd.PersistentFlags())
	// same variable names as the server
	_ = v.BindEnv("driver", "DB_DRIVER")
	_ = v.BindEnv("dsn", "DB_DSN")

	rootCmd.AddCommand(migrateCmd(v))
	rootCmd.AddCommand(createAdminCmd(v))
	rootCmd.AddCommand(issueTokenCmd(v))
	rootCmd.AddCommand(seedProductsCmd(v))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the command-line overrides held in v.
func loadConfig(v *viper.Viper) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if d := v.GetString("driver"); d != "" {
		cfg.Database.Driver = d
	}
	if dsn := v.GetString("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level := "warn"
	if v.GetBool("verbose") {
		level = "debug"
	}
	log, err := logger.New("development", level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openApp builds the application without running migrations.
func openApp(ctx context.Context, v *viper.Viper) (*app.App, error) {
	cfg, log, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Database.AutoMigrate = false
	return app.New(ctx, cfg, log)
}

func migrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := database.OpenDB(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
			if err != nil {
				return err
			}
			defer db.Close()

			ran, err := database.Migrate(ctx, db, log)
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, version := range ran {
				fmt.Println("applied", version)
			}
			return nil
		},
	}
}
