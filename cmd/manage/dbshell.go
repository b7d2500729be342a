package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
)

var dbShellCmd = &cobra.Command{
	Use:   "dbshell",
	Short: "Open a database client shell",
	Long:  "Open the mysql or sqlite3 client against the configured DATABASE_URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}

		name, clientArgs, extraEnv, err := shellCommand(dsn)
		if err != nil {
			return err
		}

		shell := exec.Command(name, clientArgs...)
		shell.Stdin = os.Stdin
		shell.Stdout = os.Stdout
		shell.Stderr = os.Stderr
		shell.Env = append(os.Environ(), extraEnv...)
		if err := shell.Run(); err != nil {
			return fmt.Errorf("%s exited: %w", name, err)
		}
		return nil
	},
}

// shellCommand はDSNからデータベースクライアントの起動コマンドを組み立てる。
func shellCommand(dsn string) (string, []string, []string, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return "sqlite3", []string{path}, nil, nil
	}
	if strings.HasSuffix(dsn, ".db") || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return "sqlite3", []string{dsn}, nil, nil
	}

	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", nil, nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	host := cfg.Addr
	port := "3306"
	if h, p, splitErr := net.SplitHostPort(cfg.Addr); splitErr == nil {
		host = h
		port = p
	}

	clientArgs := []string{"-h", host, "-P", port, "-u", cfg.User, cfg.DBName}
	var extraEnv []string
	if cfg.Passwd != "" {
		// パスワードは引数ではなくMYSQL_PWD環境変数で渡す
		extraEnv = append(extraEnv, "MYSQL_PWD="+cfg.Passwd)
	}
	return "mysql", clientArgs, extraEnv, nil
}
