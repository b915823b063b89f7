package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romariotrain/visa-docs/internal/client"
)

const defaultAPIURL = "http://localhost:8081"

type cli struct {
	apiURL string
}

func (c *cli) client() *client.Client {
	return client.New(c.apiURL)
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Upload and manage visa application documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	apiURL := os.Getenv("PORTAL_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", apiURL, "portal API base URL (env PORTAL_API_URL)")

	root.AddCommand(
		newCategoriesCommand(c),
		newListCommand(c),
		newUploadCommand(c),
		newDeleteCommand(c),
	)
	return root
}

func newCategoriesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the document categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := c.client().Categories(cmd.Context())
			if err != nil {
				return explain(err)
			}
			for _, cat := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (max %d)\n", styleBold.Render(cat.Key), cat.Label, cat.MaxFiles)
			}
			return nil
		},
	}
}

func newListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show uploaded documents, one card per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := c.client()
			cats, err := api.Categories(cmd.Context())
			if err != nil {
				return explain(err)
			}
			grouped, err := api.List(cmd.Context())
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCards(cats, grouped))
			return nil
		},
	}
}

func newUploadCommand(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a document into a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			api := c.client()
			errOut := cmd.ErrOrStderr()
			warnIfFull(cmd, api, category)

			bar := newProgressBar(errOut)
			m, err := api.Upload(cmd.Context(), category, info.Name(), f, info.Size(), bar.update)
			bar.done()
			if err != nil {
				return explain(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s\n%s\n",
				styleGreen.Render("uploaded"), m.ID, m.OriginalName, m.URL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "target category (visa, photo, passport)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// warnIfFull prints a warning when the category already holds max_files
// documents. The upload still goes ahead.
func warnIfFull(cmd *cobra.Command, api *client.Client, category string) {
	cats, err := api.Categories(cmd.Context())
	if err != nil {
		return
	}
	grouped, err := api.List(cmd.Context())
	if err != nil {
		return
	}
	for _, cat := range cats {
		if cat.Key != category {
			continue
		}
		if n := len(grouped[cat.Key]); cat.MaxFiles > 0 && n >= cat.MaxFiles {
			fmt.Fprintln(cmd.ErrOrStderr(), styleWarn.Render(
				fmt.Sprintf("%s already has %d of %d files, uploading anyway", cat.Label, n, cat.MaxFiles)))
		}
		return
	}
}

func newDeleteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if err := c.client().Delete(cmd.Context(), id); err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleGreen.Render("File deleted successfully."))
			return nil
		},
	}
}

// explain turns API validation failures into one line per field.
func explain(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	lines := apiErr.FieldErrors()
	if len(lines) == 0 {
		if apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
		return err
	}
	msg := lines[0]
	for _, l := range lines[1:] {
		msg += "\n" + l
	}
	return errors.New(msg)
}
