package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lcalzada-xor/netrack/internal/adapters/cachefile"
	"github.com/lcalzada-xor/netrack/internal/adapters/messagebus"
	"github.com/lcalzada-xor/netrack/internal/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persistent SSID and IP caches",
	}
	cmd.AddCommand(newCacheShowCmd())
	return cmd
}

func newCacheShowCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "show ssid|ip",
		Short:     "Print the entries of a cache file as JSON lines",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"ssid", "ip"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			notices := messagebus.New(0, slog.Default())
			enc := json.NewEncoder(cmd.OutOrStdout())

			switch args[0] {
			case "ssid":
				if file == "" {
					file = cfg.Caches.SSIDPath
				}
				c := cachefile.NewSSIDCache(file, notices)
				if err := c.Load(cmd.Context()); err != nil {
					return err
				}
				for _, e := range c.Entries() {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
			case "ip":
				if file == "" {
					file = cfg.Caches.IPPath
				}
				c := cachefile.NewIPCache(file, notices)
				if err := c.Load(cmd.Context()); err != nil {
					return err
				}
				for _, e := range c.Entries() {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("unknown cache %q", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "cache file (defaults to the configured path)")
	config.BindCacheFlags(cmd.Flags())
	return cmd
}
