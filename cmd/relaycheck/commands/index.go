package commands

import (
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/busybox42/relaycheck/internal/fts"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local full-text message index",
}

var (
	indexAddID      int64
	indexAddAccount int64
	indexAddFolder  int64
)

var indexAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add an RFC 822 message to the index",
	Args:  cobra.MaximumNArgs(1),
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
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return fmt.Errorf("failed to read message body: %w", err)
		}

		received := time.Now().UnixMilli()
		if t, err := msg.Header.Date(); err == nil {
			received = t.UnixMilli()
		}

		idx, err := fts.Open(cfg.FTS.Path, logger)
		if err != nil {
			return err
		}
		defer idx.Close()

		return idx.Insert(cmd.Context(), fts.Doc{
			ID:      indexAddID,
			Account: indexAddAccount,
			Folder:  indexAddFolder,
			Time:    received,
			Address: msg.Header.Get("From") + " " + msg.Header.Get("To"),
			Subject: msg.Header.Get("Subject"),
			Text:    string(body),
		})
	},
}

var (
	indexSearchAccount int64
	indexSearchFolder  int64
)

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index, printing matching message ids",
	Long: `Searches the index with the given query. Words prefixed with + must
occur, words prefixed with - must not, and words prefixed with ? may
occur. Unprefixed words are required.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := fts.Open(cfg.FTS.Path, logger)
		if err != nil {
			return err
		}
		defer idx.Close()

		query := fts.Query{Text: args[0]}
		if cmd.Flags().Changed("account") {
			query.Account = &indexSearchAccount
		}
		if cmd.Flags().Changed("folder") {
			query.Folder = &indexSearchFolder
		}

		ids, err := idx.Search(cmd.Context(), query)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var indexOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Merge the index segments and report the file size",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := fts.Open(cfg.FTS.Path, logger)
		if err != nil {
			return err
		}
		defer idx.Close()

		if err := idx.Optimize(cmd.Context()); err != nil {
			return err
		}
		size, err := idx.Size()
		if err != nil {
			return err
		}
		fmt.Printf("index size: %d bytes\n", size)
		return nil
	},
}

func init() {
	indexAddCmd.Flags().Int64Var(&indexAddID, "id", 0, "Message id (index rowid)")
	indexAddCmd.Flags().Int64Var(&indexAddAccount, "account", 0, "Account id")
	indexAddCmd.Flags().Int64Var(&indexAddFolder, "folder", 0, "Folder id")
	indexAddCmd.MarkFlagRequired("id")

	indexSearchCmd.Flags().Int64Var(&indexSearchAccount, "account", 0, "Restrict to an account id")
	indexSearchCmd.Flags().Int64Var(&indexSearchFolder, "folder", 0, "Restrict to a folder id")

	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexOptimizeCmd)
	rootCmd.AddCommand(indexCmd)
}
