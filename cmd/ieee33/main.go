package main

import (
	_ "embed"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ohowland/cgc_powerflow/internal/lib/network/case33bw"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/report"
	"github.com/spf13/cobra"
)

//go:embed runpp.json
var runppConfig []byte

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Println("[Main]", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "ieee33",
		Short:         "Run an AC power flow on the IEEE 33-bus feeder and print the results",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), runppConfig)
		},
	}
}

// run solves the feeder with the solver options in optsConfig and writes the
// result tables to out. Nothing is written unless the solve succeeds.
func run(out io.Writer, optsConfig []byte) error {
	log.Println("[Main] Loading case33bw")
	net, err := buildNetwork()
	if err != nil {
		return err
	}
	log.Printf("[Main] %s, %.0f Hz, base %v MVA\n", net.Name(), net.FHz(), net.SnMVA())

	log.Println("[Main] Reading solver options")
	opts, err := buildOptions(optsConfig)
	if err != nil {
		return err
	}

	log.Printf("[Main] Solving network %v (%d buses, %d lines)\n",
		net.PID(), len(net.Buses()), len(net.Lines()))
	res, err := powerflow.Solve(net, opts)
	if err != nil {
		return err
	}
	logSummary(res)

	if err := report.Write(out, report.BusTable(res)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return report.Write(out, report.LineTable(res))
}

func buildNetwork() (network.Network, error) {
	return case33bw.Load()
}

func buildOptions(jsonConfig []byte) (powerflow.Options, error) {
	return powerflow.NewOptions(jsonConfig)
}

func logSummary(res powerflow.Result) {
	s := res.Summary()
	log.Printf("[Main] Voltage min %.4f p.u. (bus %d), max %.4f p.u. (bus %d)\n",
		s.MinVmPU, s.MinVmBus, s.MaxVmPU, s.MaxVmBus)
	log.Printf("[Main] Losses %.4f MW / %.4f MVAr, slack supplies %.4f MW / %.4f MVAr\n",
		s.LossMW, s.LossMVar, s.SlackPMW, s.SlackQMVar)
	log.Printf("[Main] Highest loading %.1f%% (line %d)\n", s.MaxLoading, s.MaxLine)
	if low := res.VoltageViolations(0.95, 1.05); len(low) > 0 {
		log.Printf("[Main] %d buses outside 0.95-1.05 p.u.\n", len(low))
	}
}
