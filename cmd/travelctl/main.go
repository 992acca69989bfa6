// travelctl 运维命令行：建表、人工对账、计算钱包回调签名
package main

import (
	"database/sql"
	"fmt"
	"os"

	"travel-booking-backend/config"
	"travel-booking-backend/internal/util"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "travelctl",
		Short:   "Operator tooling for the travel booking backend",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			util.InitLogger(config.Load().LogLevel)
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(confirmCmd())
	rootCmd.AddCommand(signCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required")
	}
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}
