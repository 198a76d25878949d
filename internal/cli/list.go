package cli

import (
	"fmt"
	"path/filepath"

	"github.com/hitoshi/devflow/internal/model"
	"github.com/hitoshi/devflow/internal/security"
	"github.com/hitoshi/devflow/internal/storage"
	"github.com/hitoshi/devflow/internal/workitem"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work items",
	RunE:  runList,
}

var listState string

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", `Filter by workflow state ("Draft", "Spec Generated", "Ready for Development")`)
	rootCmd.AddCommand(listCmd)
}

// openWorkItemStore はローカル状態ファイル上の作業アイテムストアを開く。
func openWorkItemStore() (*workitem.Store, error) {
	fs, err := storage.NewFileStore(filepath.Join(dataDir(), "state.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	return workitem.NewStore(fs, security.NewContentSanitizer()), nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openWorkItemStore()
	if err != nil {
		return err
	}

	var items []model.WorkItem
	if listState != "" {
		state := model.WorkflowState(listState)
		if !state.Valid() {
			return fmt.Errorf("unknown workflow state: %q", listState)
		}
		items = store.ListByState(state)
	} else {
		items = store.List()
	}

	if len(items) == 0 {
		fmt.Println("No work items found.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  [%s]  %s\n", item.ID, item.WorkflowState, item.Title)
	}
	return nil
}
