package main

import (
	"fmt"
	"sort"
	"sync"

	"ips-guard/internal/client"
	"ips-guard/internal/model"
	"ips-guard/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var replayWorkers int

var replayCmd = &cobra.Command{
	Use:   "replay <file.pcap>...",
	Short: "Evaluate rules against pcap files",
	Long:  "Decodes each pcap file and evaluates the loaded rules against every packet, then prints a summary",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().IntVarP(&replayWorkers, "workers", "w", 0, "Worker count (0 uses the configured value)")
}

// ruleCounter tallies alerts per rule for the replay summary.
type ruleCounter struct {
	mu     sync.Mutex
	counts map[string]int
	msgs   map[string]string
}

func (c *ruleCounter) SendAlert(a model.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[a.RuleID]++
	c.msgs[a.RuleID] = a.Message
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	counter := &ruleCounter{counts: map[string]int{}, msgs: map[string]string{}}
	rt.engine.RegisterNotifier(counter)

	workers := rt.config.Application.Workers
	if replayWorkers > 0 {
		workers = replayWorkers
	}
	pool := pipeline.NewPool(rt.engine, rt.metrics, rt.logger, workers, rt.config.Profile.FlushInterval())

	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	for _, path := range args {
		src, err := client.OpenPcap(path, rt.logger)
		if err != nil {
			return err
		}
		err = pool.Run(cmd.Context(), src)
		_ = src.Close()
		if err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}
		if n := src.Failures(); n > 0 {
			color.New(color.FgYellow).Fprintf(out, "%s: %d packets could not be decoded\n", path, n)
		}
	}

	bold.Fprintln(out, "\nAlerts by rule")
	ids := make([]string, 0, len(counter.counts))
	for id := range counter.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %-16s %8d  %s\n", color.HiGreenString(id), counter.counts[id], counter.msgs[id])
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "  (none)")
	}

	bold.Fprintln(out, "\nOption profile")
	for _, s := range rt.engine.Registry().Profile().Snapshot() {
		if s.Checks == 0 {
			continue
		}
		fmt.Fprintf(out, "  %-10s checks=%-10d total=%-14s avg=%s\n", color.HiBlueString(s.Name), s.Checks, s.Elapsed, s.Average())
	}
	return nil
}
