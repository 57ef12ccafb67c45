package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or change the saved multi-round history",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the formatted short history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(sess *session) error {
			fmt.Println(sess.console.Indicator())
			fmt.Println(sess.console.FormattedHistory())
			return nil
		})
	},
}

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the history and start again at round zero",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(sess *session) error {
			sess.console.ResetHistory()
			fmt.Println("History cleared")
			return nil
		})
	},
}

var historyEnableCmd = &cobra.Command{
	Use:   "enable [max-rounds]",
	Short: "Enable multi-round mode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxRounds := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("max-rounds must be a positive integer, got %q", args[0])
			}
			maxRounds = n
		}
		return withSession(func(sess *session) error {
			sess.console.EnableMultiRound(maxRounds)
			fmt.Println(sess.console.Indicator())
			return nil
		})
	},
}

var historyDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable multi-round mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(sess *session) error {
			sess.console.DisableMultiRound()
			fmt.Println("Multi-round disabled")
			return nil
		})
	},
}

func withSession(fn func(*session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyResetCmd, historyEnableCmd, historyDisableCmd)
	rootCmd.AddCommand(historyCmd)
}
