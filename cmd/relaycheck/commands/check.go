package commands

import (
	"fmt"
	"io"
	"net/mail"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check a message's originating relay against the enabled blocklists",
	Long: `Reads an RFC 822 message from the given file (or stdin), extracts the
originating relay from its Received trace and checks it against every
enabled blocklist.

Exit codes: 0 clean, 1 listed, 2 no relay host could be determined.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			input = f
		}

		msg, err := mail.ReadMessage(input)
		if err != nil {
			return fmt.Errorf("failed to parse message: %w", err)
		}

		// Received headers appear newest-first in the message; the checker
		// expects the most recent hop last.
		received := msg.Header["Received"]
		for i, j := 0, len(received)-1; i < j; i, j = i+1, j-1 {
			received[i], received[j] = received[j], received[i]
		}

		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comp.Close()

		junk, known := comp.checker.CheckReceived(cmd.Context(), received)
		switch {
		case !known:
			fmt.Println("unknown: no relay host could be determined")
			os.Exit(2)
		case junk:
			fmt.Println("listed: relay host appears on a blocklist")
			os.Exit(1)
		default:
			fmt.Println("clean: relay host is not listed")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
