package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shiftmate/backend/config"
	"shiftmate/backend/pkg/database"
	applogger "shiftmate/backend/pkg/logger"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "ShiftMate 数据库迁移工具",
		Long:  `执行、回滚或查看内嵌的 PostgreSQL 迁移（golang-migrate）。`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(downCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDB 加载配置并打开数据库连接，执行完毕后关闭
func withDB(fn func(db *sql.DB, logger *zap.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	gdb, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, logger)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(database.RunMigrations)
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "回滚迁移（默认 1 步）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps 必须是正整数: %q", args[0])
				}
				steps = n
			}
			return withDB(func(db *sql.DB, logger *zap.Logger) error {
				return database.RollbackMigrations(db, steps, logger)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "查看当前迁移版本",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *sql.DB, _ *zap.Logger) error {
				version, dirty, err := database.MigrationVersion(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	}
}
