package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voice-butler/internal/domain"
)

func classifyCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:         "classify <text>",
		Short:       "Classify a text command and print the decision without applying it",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"logs": "stderr"},
		RunE: func(cmd *cobra.Command, args []string) error {
			build := newClassifier
			if admin {
				build = newAdminClassifier
			}
			classifier, err := build(cfg, logger)
			if err != nil {
				return err
			}

			decision, err := classifier.Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				var malformed *domain.MalformedResponseError
				if errors.As(err, &malformed) {
					fmt.Fprintf(os.Stderr, "raw reply: %s\n", malformed.Raw)
				}
				return err
			}

			out, err := json.Marshal(decision)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			fmt.Fprintf(os.Stderr, "source: %s\n", decision.Source)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "use the admin model and prompt")
	return cmd
}
