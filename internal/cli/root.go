// Package cli は開発者向けのコマンドラインインターフェースを提供する。
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devflow",
	Short: "AI-powered development workflow platform",
	Long:  `devflow は計画ダッシュボードの作業アイテムをターミナルから扱うためのCLIツール。作業アイテムの一覧表示と、ストーリー単位のワークスペース操作を提供する。`,
}

// Execute はルートコマンドを実行する。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
