package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kayz/promptdeck/internal/ai"
	"github.com/spf13/cobra"
)

var (
	modelsImagesOnly  bool
	modelsTestTimeout int
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers and models, or test the configured model",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := ai.LoadRegistry()
		if err != nil {
			return err
		}
		if modelsImagesOnly {
			fmt.Println("Models accepting images:")
			for _, name := range reg.ModelsWithImages() {
				fmt.Printf("  %s\n", name)
			}
			return nil
		}
		fmt.Printf("Providers (overrides: %s):\n", ai.ProvidersPath())
		for _, p := range reg.ListProviders() {
			fmt.Printf("\n%s (%s, %s)\n", p.Name, p.Type, p.BaseURL)
			for _, m := range p.Models {
				note := ""
				if m.Images {
					note = " [images]"
				}
				fmt.Printf("  %-32s max_tokens=%d temperature=%.2f%s\n", m.Name, m.MaxTokens, m.Temperature, note)
			}
			for _, name := range p.SuggestedModels {
				fmt.Printf("  %-32s (suggested)\n", name)
			}
		}
		return nil
	},
}

var modelsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a short request to the configured model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(sess *session) error {
			model, ok := sess.console.Model()
			if !ok {
				return fmt.Errorf("no model configured: set ai.provider and ai.model or use --provider/--model")
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(modelsTestTimeout)*time.Second)
			defer cancel()

			start := time.Now()
			out, err := sess.console.TestModel(ctx)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", model.Provider, model.Model, err)
			}
			fmt.Printf("%s/%s OK in %s\n%s\n", model.Provider, model.Model,
				time.Since(start).Round(time.Millisecond), out)
			return nil
		})
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsImagesOnly, "images", false, "Only list models that accept images")
	modelsTestCmd.Flags().IntVar(&modelsTestTimeout, "timeout", 30, "Timeout in seconds")
	modelsCmd.AddCommand(modelsTestCmd)
	rootCmd.AddCommand(modelsCmd)
}
