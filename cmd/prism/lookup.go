package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/prism/internal/report"
	"github.com/abelbrown/prism/internal/store"
)

func newClustersCommand(g *globals) *cobra.Command {
	var (
		query string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "List stored clusters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(g.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListClusters(query, limit)
			if err != nil {
				return err
			}
			return report.Clusters(cmd.OutOrStdout(), g.out, list)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "only clusters created for this query")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum clusters to list")
	return cmd
}

func newClusterCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cluster <id>",
		Short: "Show a stored cluster with its facts, framing and articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(g.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := st.Cluster(args[0])
			if err != nil {
				return notFound("cluster", args[0], err)
			}
			articles, err := st.ArticlesByCluster(c.ID)
			if err != nil {
				return err
			}
			return report.Cluster(cmd.OutOrStdout(), g.out, report.ClusterView{Cluster: c, Articles: articles})
		},
	}
}

func newArticleCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "article <id>",
		Short: "Show a stored article and its scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(g.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			a, err := st.Article(args[0])
			if err != nil {
				return notFound("article", args[0], err)
			}
			return report.Article(cmd.OutOrStdout(), g.out, a)
		},
	}
}

func notFound(kind, id string, err error) error {
	if store.IsNotFound(err) {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}
