package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taxsun/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the aggregation result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	Long: `Delete every cached aggregation result. Run this after changing
engine.ranks if the server is not restarted, or to reclaim space.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache(a *app) (*storage.ResultCache, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return storage.NewResultCache(db)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, err := openCache(a)
	if err != nil {
		return err
	}
	defer cache.Close()

	n, err := cache.Purge(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cache, err := openCache(a)
	if err != nil {
		return err
	}
	defer cache.Close()

	if err := cache.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Result cache cleared")
	return nil
}
