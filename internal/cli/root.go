// Package cli implements the invoicectl commands against a local store.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zainab-noor-25/invoice-api/internal/app"
	"github.com/zainab-noor-25/invoice-api/internal/chat"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// Opener builds the application for one command invocation.
type Opener func(ctx context.Context) (*app.App, error)

type runner struct {
	open Opener
	app  *app.App
}

// NewRootCmd returns invoicectl with every subcommand attached.
func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}
	root := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Process and query invoices without the HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			r.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if r.app != nil {
				r.app.Close(context.Background())
				r.app = nil
			}
		},
	}
	root.AddCommand(
		r.processCmd(),
		r.reprocessCmd(),
		r.askCmd(),
		r.listCmd(),
		r.exportCmd(),
	)
	return root
}

func (r *runner) processCmd() *cobra.Command {
	var skipHidden bool
	cmd := &cobra.Command{
		Use:   "process <file|dir>",
		Short: "Ingest a file (or every invoice under a directory) and run the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := os.Stat(args[0])
			if err != nil {
				return common.InvalidInputf("%v", err)
			}

			var ids []uuid.UUID
			if info.IsDir() {
				results, stats, err := r.app.Ingest.IngestDirectory(ctx, args[0], skipHidden)
				if err != nil {
					return err
				}
				for _, res := range results {
					if res.Err != "" {
						cmd.PrintErrf("skipped %s: %s\n", res.SourcePath, res.Err)
						continue
					}
					if !res.Deduplicated {
						ids = append(ids, res.DocumentID)
					}
				}
				cmd.Printf("ingested %d of %d matching files (%d duplicates)\n", stats.Succeeded, stats.Matched, stats.Deduplicated)
			} else {
				res, err := r.app.Ingest.IngestPath(ctx, args[0])
				if err != nil {
					return err
				}
				if res.Deduplicated {
					cmd.Printf("%s already ingested; use reprocess to run it again\n", res.DocumentID)
					return nil
				}
				ids = append(ids, res.DocumentID)
			}

			var failed int
			for _, id := range ids {
				st, err := r.app.Pipeline.Process(ctx, id)
				if err != nil {
					failed++
					cmd.PrintErrf("%s failed at %s: %v\n", id, st.FailedAt, err)
					continue
				}
				if err := r.printDocument(cmd, id); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d invoices failed", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	return cmd
}

func (r *runner) reprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <invoice-id>",
		Short: "Run the pipeline again, replacing fields and chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := r.app.Pipeline.Reprocess(cmd.Context(), id); err != nil {
				return err
			}
			return r.printDocument(cmd, id)
		},
	}
}

func (r *runner) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <invoice-id> <question>",
		Short: "Ask a question about one invoice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ans, err := r.app.Chat.Ask(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			cmd.Println(ans.Answer)
			if ans.Source == chat.SourceChunks && len(ans.UsedChunks) > 0 {
				cmd.Printf("(chunks %v)\n", ans.UsedChunks)
			}
			return nil
		},
	}
}

func (r *runner) listCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := r.app.Documents.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(docs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal invoices: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			if len(docs) == 0 {
				cmd.Println("No invoices.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSUPPLIER\tTOTAL\tFILE")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, orDash(d.Fields.SupplierName), total(d.Fields), d.FileName)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of invoices")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (r *runner) exportCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Write extracted fields of all invoices to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := r.app.Export.ExportInvoicesXLSX(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			cmd.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of invoices (0 = default)")
	return cmd
}

func (r *runner) printDocument(cmd *cobra.Command, id uuid.UUID) error {
	doc, err := r.app.Documents.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	doc.OCRText = ""
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, errors.Join(common.InvalidInputf("invoice id must be a UUID"), err)
	}
	return id, nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func total(f entity.ExtractedFields) string {
	if f.TotalAmount == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f.TotalAmount)
}
