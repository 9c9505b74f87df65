package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(tabCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(statsCmd)

	listCmd.Flags().String("tab", "", "Switch to active, disabled or sold first")
	listCmd.Flags().Int("page", 0, "Jump to page N first")
}

// ─── list ───────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current page of the current tab",
	Long: `Show the voucher table. The tab and page are remembered between
invocations; --tab and --page move before showing.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	ctx := cmd.Context()
	tab, _ := cmd.Flags().GetString("tab")
	page, _ := cmd.Flags().GetInt("page")

	var err error
	switch {
	case tab != "":
		var status domain.Status
		if status, err = domain.ParseStatus(tab); err != nil {
			return err
		}
		err = rt.desk.SwitchTab(ctx, status)
		if err == nil && page > 0 {
			err = rt.desk.GoToPage(ctx, page)
		}
	case page > 0:
		err = rt.desk.GoToPage(ctx, page)
	default:
		err = rt.loadList(ctx)
	}
	if err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), rt.desk.View())
	return nil
}

// ─── navigation ─────────────────────────────────────────────────────────────

var tabCmd = &cobra.Command{
	Use:       "tab active|disabled|sold",
	Short:     "Switch the status tab (resets to page 1)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"active", "disabled", "sold"},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		status, err := domain.ParseStatus(args[0])
		if err != nil {
			return err
		}
		if err := rt.desk.SwitchTab(cmd.Context(), status); err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), rt.desk.View())
		return nil
	},
}

var pageCmd = &cobra.Command{
	Use:   "page N",
	Short: "Jump to page N of the current tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return domain.ErrInvalidPage
		}
		if err := rt.desk.GoToPage(cmd.Context(), n); err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), rt.desk.View())
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Go to the next page",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if err := rt.loadList(cmd.Context()); err != nil {
			return err
		}
		if err := rt.desk.NextPage(cmd.Context()); err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), rt.desk.View())
		return nil
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to the previous page",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if err := rt.loadList(cmd.Context()); err != nil {
			return err
		}
		if err := rt.desk.PreviousPage(cmd.Context()); err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), rt.desk.View())
		return nil
	},
}

// ─── stats ──────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show voucher statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if err := rt.loadList(cmd.Context()); err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), rt.desk.View().List.Stats)
		return nil
	},
}
