/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/devfolio/apiserver/internal/db"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sitemapOutput string

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Sitemap maintenance",
}

var sitemapGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the static sitemap file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		output := cfg.Sitemap.OutputPath
		if sitemapOutput != "" {
			output = sitemapOutput
		}
		svc := services.NewSitemapService(
			store.NewPortfolioRepository(conn),
			store.NewBlogRepository(conn),
			nil,
			services.SitemapOptions{
				SiteURL:      cfg.Sitemap.SiteURL,
				OutputPath:   output,
				StaticRoutes: cfg.Sitemap.StaticRoutes,
			},
			logger,
		)
		if err := svc.WriteFile(cmd.Context()); err != nil {
			return err
		}
		logger.Info("sitemap written", zap.String("path", output))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitemapCmd)
	sitemapGenerateCmd.Flags().StringVarP(&sitemapOutput, "output", "o", "", "output path (defaults to SITEMAP_OUTPUT_PATH)")
	sitemapCmd.AddCommand(sitemapGenerateCmd)
}
