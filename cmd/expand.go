package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/promptbuild"
	"github.com/spf13/cobra"
)

var (
	expandPackPath   string
	expandMode       string
	expandOutputPath string
	expandExportPath string
	expandPackName   string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand a prompt template from a pack file or the saved session",
	Long: `Expand {{field}}, {{input_box}} and {{short_history}} placeholders.

With --pack the template, fields and history come from a YAML pack file.
Without it the saved console session is expanded. --export-pack writes the
saved session as a pack file instead of expanding it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := promptbuild.ParseMode(expandMode)

		if expandPackPath != "" {
			pack, err := promptbuild.LoadPack(expandPackPath)
			if err != nil {
				return err
			}
			out, err := pack.Expand(mode)
			if err != nil {
				return fmt.Errorf("expand pack %s: %w", pack.Name, err)
			}
			return writeExpandOutput(out)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess, err := openSession(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		if expandExportPath != "" {
			pack := sessionPack(sess, expandPackName)
			if err := promptbuild.SavePack(expandExportPath, pack); err != nil {
				return fmt.Errorf("export pack: %w", err)
			}
			logger.Info("[Expand] Wrote pack %q to %s", pack.Name, expandExportPath)
			return nil
		}

		return writeExpandOutput(sess.console.Expand(mode))
	},
}

// sessionPack captures the saved session as a pack.
func sessionPack(sess *session, name string) *promptbuild.Pack {
	if name == "" {
		name = "session"
	}
	st := sess.console.HistoryState()
	pack := &promptbuild.Pack{
		Version:  "1",
		Name:     name,
		Template: sess.console.View().Canonical,
		Input:    sess.console.Input(),
		Fields:   sess.console.Fields(),
		MultiRound: promptbuild.PackMultiRound{
			Enabled:   st.MultiRoundEnabled,
			MaxRounds: st.MaxRounds,
		},
	}
	for _, e := range st.Entries {
		pack.History = append(pack.History, promptbuild.PackRound{Input: e.Input, Output: e.Output})
	}
	return pack
}

func writeExpandOutput(out string) error {
	if expandOutputPath == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(expandOutputPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func init() {
	expandCmd.Flags().StringVar(&expandPackPath, "pack", "", "YAML pack file to expand")
	expandCmd.Flags().StringVar(&expandMode, "mode", "plain", "plain or annotated")
	expandCmd.Flags().StringVar(&expandOutputPath, "output", "", "Write output to file (default: stdout)")
	expandCmd.Flags().StringVar(&expandExportPath, "export-pack", "", "Write the saved session to this pack file")
	expandCmd.Flags().StringVar(&expandPackName, "name", "", "Pack name used with --export-pack")
	rootCmd.AddCommand(expandCmd)
}
