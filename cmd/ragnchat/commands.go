package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/services"
	"github.com/fyrsmithlabs/ragnchat/internal/tui"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

func (c *cli) pingCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Echo text back reversed",
		Long: `Echo text back with its reversal. Useful for checking the CLI works.

Examples:
  ragnchat ping --text hello`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in *string
			if cmd.Flags().Changed("text") {
				in = &text
			}
			if err := v1.ValidatePing(in); err != nil {
				return err
			}
			resp := v1.PingResponse{Ping: text, Pong: v1.Reverse(text)}
			if c.jsonOut {
				return c.printJSON(resp)
			}
			c.printField("ping", resp.Ping)
			c.printField("pong", resp.Pong)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to echo")
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	var (
		prompt string
		repo   string
		extra  []string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask a question, optionally about an ingested repository",
		Long: `Ask the model a question. With --repo the answer is grounded on the
three most similar files of the ingested repository.

Examples:
  ragnchat chat --prompt "what is a goroutine?"
  ragnchat chat --repo octocat/hello-world --prompt "what does it print?"
  ragnchat chat --repo octocat/hello-world/dev --prompt "..." --context "earlier answer"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v1.ValidatePrompt(&prompt); err != nil {
				return err
			}
			req := chat.Request{Prompt: prompt, Context: extra}
			if cmd.Flags().Changed("repo") {
				req.Repository = &repo
			}
			if err := v1.ValidateChat(req.Prompt, req.Repository, req.Context); err != nil {
				return err
			}
			return c.withServices(cmd, func(ctx context.Context, reg services.Registry) error {
				answer, err := reg.Chat().Answer(ctx, req)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return c.printJSON(v1.ChatResponse{Response: answer})
				}
				fmt.Fprintln(c.stdout(), answer)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "question to ask")
	cmd.Flags().StringVar(&repo, "repo", "", "repository as owner/repo[/branch]")
	cmd.Flags().StringSliceVar(&extra, "context", nil, "extra context strings, comma separated")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (c *cli) repoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repo-list",
		Short: "List ingested repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(ctx context.Context, reg services.Registry) error {
				namespaces, err := reg.VectorStore().ListNamespaces(ctx)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return c.printJSON(namespaces)
				}
				if len(namespaces) == 0 {
					fmt.Fprintln(c.stdout(), dimStyle.Render("No repositories ingested."))
					return nil
				}
				fmt.Fprintln(c.stdout(), titleStyle.Render(fmt.Sprintf("%d repositories", len(namespaces))))
				for _, ns := range namespaces {
					fmt.Fprintln(c.stdout(), "  "+ns)
				}
				return nil
			})
		},
	}
}

func (c *cli) repoVectorizeCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "repo-vectorize",
		Short: "Ingest a repository into the vector store",
		Long: `Fetch every file of a repository branch, embed the allowed ones and store
them under the owner/repo/branch namespace. Records are keyed by file
name, so re-running replaces them and same-named files in different
directories share one record.

Examples:
  ragnchat repo-vectorize --repo octocat/hello-world
  ragnchat repo-vectorize --repo octocat/hello-world/dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRepoFlag(repo)
			if err != nil {
				return err
			}
			return c.withServices(cmd, func(ctx context.Context, reg services.Registry) error {
				var progress repository.Progress
				var bar *barProgress
				if !c.jsonOut {
					bar = newBarProgress(cmd.ErrOrStderr(), ref.Namespace())
					progress = bar
				}

				result, err := reg.Repository().VectorizeWithProgress(ctx, ref, progress)
				if bar != nil {
					bar.Finish()
				}
				if err != nil {
					return err
				}

				if c.jsonOut {
					return c.printJSON(v1.VectorizeResponse{
						Status:         v1.StatusSuccess,
						ProcessedFiles: result.ProcessedFiles,
						Owner:          result.Owner,
						Repo:           result.Repo,
						Branch:         result.Branch,
					})
				}
				c.printField("repository", fmt.Sprintf("%s/%s/%s", result.Owner, result.Repo, result.Branch))
				c.printField("processed files", fmt.Sprintf("%d", result.ProcessedFiles))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository as owner/repo[/branch]")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

func (c *cli) repoDeleteCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "repo-delete",
		Short: "Delete an ingested repository",
		Long: `Delete every record of a repository branch from the vector store.

Examples:
  ragnchat repo-delete --repo octocat/hello-world`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRepoFlag(repo)
			if err != nil {
				return err
			}
			ns := ref.Namespace()
			return c.withServices(cmd, func(ctx context.Context, reg services.Registry) error {
				if err := reg.VectorStore().DeleteNamespace(ctx, ns); err != nil {
					if errors.Is(err, v1.ErrNotFound) {
						return v1.NotFoundf("Repository namespace not found: %s", ns)
					}
					return err
				}
				if c.jsonOut {
					return c.printJSON(v1.DeleteResponse{Status: v1.StatusSuccess, Repository: ns})
				}
				c.printField("deleted", ns)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository as owner/repo[/branch]")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

func (c *cli) interactiveCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive chat session",
		Long: `Open a full-screen chat session. With --repo every question is answered
from the ingested repository; earlier turns are sent along as context.

Examples:
  ragnchat interactive
  ragnchat interactive --repo octocat/hello-world`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target *string
			if cmd.Flags().Changed("repo") {
				ref, err := parseRepoFlag(repo)
				if err != nil {
					return err
				}
				ns := ref.Namespace()
				target = &ns
			}
			return c.withServices(cmd, func(ctx context.Context, reg services.Registry) error {
				return tui.Run(reg.Chat(), target)
			})
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository as owner/repo[/branch]")
	return cmd
}

func parseRepoFlag(repo string) (repository.Ref, error) {
	repo = strings.TrimSpace(repo)
	if err := v1.ValidateRepository(repo); err != nil {
		return repository.Ref{}, err
	}
	return repository.ParseRef(repo)
}
