package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/smallpapers"
)

var smallCmd = &cobra.Command{
	Use:   "small",
	Short: "Manage the small paper collection",
	Long: `Commands for the manually curated small paper collection.

list and find only read. add, update and delete require signing in. add
records the signed-in name as added_by unless --added-by is given; update
only changes added_by when --added-by is given.`,
}

var smallListYear string

var smallListCmd = &cobra.Command{
	Use:   "list",
	Short: "List small papers, newest arXiv id first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		gw, cleanup, err := openGateway(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var papers []*domain.SmallPaper
		if cmd.Flags().Changed("year") {
			papers, err = gw.ListByYear(ctx, smallListYear)
		} else {
			papers, err = gw.ListAll(ctx)
		}
		if err != nil {
			return err
		}

		if !humanOutput {
			if papers == nil {
				papers = []*domain.SmallPaper{}
			}
			return outputJSON(papers)
		}
		if len(papers) == 0 {
			outputHuman("No small papers.\n")
			return nil
		}
		for _, p := range papers {
			printSmallPaper(p)
		}
		return nil
	},
}

var smallFindCmd = &cobra.Command{
	Use:   "find <arxiv-id>",
	Short: "Look up the id of the small paper with an arXiv id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		gw, cleanup, err := openGateway(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		id, found, err := gw.FindByArxivID(ctx, args[0])
		if err != nil {
			return err
		}
		if humanOutput {
			if found {
				outputHuman("%s\n", id)
			} else {
				outputHuman("No small paper with arXiv id %s.\n", args[0])
			}
			return nil
		}
		var out struct {
			ID *string `json:"id"`
		}
		if found {
			out.ID = &id
		}
		return outputJSON(out)
	},
}

// paperFlags holds the add/update flags. Optional fields are only sent when set.
type paperFlags struct {
	arxivID     string
	title       string
	year        int
	publication string
	authors     string
	addedBy     string
}

func (f *paperFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.arxivID, "arxiv-id", "", "arXiv identifier (required)")
	cmd.Flags().StringVar(&f.title, "title", "", "Paper title (required)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Publication year")
	cmd.Flags().StringVar(&f.publication, "publication", "", "Publication reference")
	cmd.Flags().StringVar(&f.authors, "authors", "", "Author list")
	cmd.Flags().StringVar(&f.addedBy, "added-by", "", "Curator name (defaults to the signed-in user)")
}

// input collects the flags that were set. When defaultCurator is non-nil and
// --added-by was not given, its name is recorded as added_by.
func (f *paperFlags) input(cmd *cobra.Command, defaultCurator *domain.Identity) domain.SmallPaperInput {
	in := domain.SmallPaperInput{ArxivID: f.arxivID, Title: f.title}
	flags := cmd.Flags()
	if flags.Changed("year") {
		in.Year = &f.year
	}
	if flags.Changed("publication") {
		in.Publication = &f.publication
	}
	if flags.Changed("authors") {
		in.Authors = &f.authors
	}
	if flags.Changed("added-by") {
		in.AddedBy = &f.addedBy
	} else if name := defaultCurator.Name(); name != "" {
		in.AddedBy = &name
	}
	return in
}

var (
	addFlags    paperFlags
	updateFlags paperFlags
)

var smallAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a small paper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMutation(cmd, func(ctx context.Context, gw *smallpapers.Gateway, identity *domain.Identity) error {
			id, err := gw.Insert(ctx, addFlags.input(cmd, identity))
			if err != nil {
				return err
			}
			if humanOutput {
				outputHuman("Added %s\n", id)
				return nil
			}
			return outputJSON(map[string]string{"id": id})
		})
	},
}

var smallUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a small paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation(cmd, func(ctx context.Context, gw *smallpapers.Gateway, _ *domain.Identity) error {
			if err := gw.Update(ctx, args[0], updateFlags.input(cmd, nil)); err != nil {
				return err
			}
			if humanOutput {
				outputHuman("Updated %s\n", args[0])
				return nil
			}
			return outputJSON(map[string]string{"id": args[0]})
		})
	},
}

var smallDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a small paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation(cmd, func(ctx context.Context, gw *smallpapers.Gateway, _ *domain.Identity) error {
			if err := gw.Delete(ctx, args[0]); err != nil {
				return err
			}
			if humanOutput {
				outputHuman("Deleted %s\n", args[0])
				return nil
			}
			return outputJSON(map[string]string{"id": args[0]})
		})
	},
}

// runMutation signs in through a writeGuard before handing the gateway to fn.
func runMutation(cmd *cobra.Command, fn func(context.Context, *smallpapers.Gateway, *domain.Identity) error) error {
	ctx := cmd.Context()

	sessions, err := newSessions()
	if err != nil {
		return err
	}
	guard := newWriteGuard(sessions, os.Stderr)
	defer guard.Close()

	identity, err := guard.Require(ctx)
	if err != nil {
		return fmt.Errorf("sign-in: %w", err)
	}

	gw, cleanup, err := openGateway(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(observability.WithUserID(ctx, identity.UserID), gw, identity)
}

func init() {
	smallListCmd.Flags().StringVar(&smallListYear, "year", "", "Only papers from this year")

	addFlags.register(smallAddCmd)
	updateFlags.register(smallUpdateCmd)

	smallCmd.AddCommand(smallListCmd, smallFindCmd, smallAddCmd, smallUpdateCmd, smallDeleteCmd)
	rootCmd.AddCommand(smallCmd)
}
