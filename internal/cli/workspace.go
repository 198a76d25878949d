package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ストーリー単位のワークスペース操作。実装は後続リリースで提供する。

var startCmd = &cobra.Command{
	Use:   "start <story-id>",
	Short: "Start work on a story (creates workspace)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Starting work on story: %s\n", args[0])
		fmt.Println("(Implementation coming soon)")
		return nil
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish <story-id>",
	Short: "Finish work on a story (uploads artifacts)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Finishing story: %s\n", args[0])
		fmt.Println("(Implementation coming soon)")
		return nil
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage devflow skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Skill management:")
		fmt.Println("(Implementation coming soon)")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(skillsCmd)
}
