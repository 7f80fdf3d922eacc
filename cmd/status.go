package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stackmgr/internal/components"
)

var statusFlags runFlags

// componentUnits maps each component to its systemd unit. Components without
// a unit of their own (sanity) are absent.
var componentUnits = map[string]string{
	components.NameDatabase:       components.DatabaseUnit,
	components.NameBroker:         components.BrokerUnit,
	components.NameRESTService:    components.RESTServiceUnit,
	components.NameWebUI:          components.WebUIUnit,
	components.NameUsageCollector: components.UsageCollectorTimer,
}

// statusCmd shows the state of every managed service unit.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the platform services on this machine",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	r, err := prepare(&statusFlags, false, false)
	if err != nil {
		return err
	}

	type row struct {
		name  string
		unit  string
		state string
	}
	var rows []*row
	for _, comp := range r.comps {
		unit, ok := componentUnits[comp.Name()]
		if !ok {
			continue
		}
		rows = append(rows, &row{name: comp.Name(), unit: unit})
	}

	// Unit queries are independent; run them concurrently.
	var group errgroup.Group
	for _, item := range rows {
		item := item
		group.Go(func() error {
			state, err := r.ctx.Host.ServiceActiveState(item.unit)
			if err != nil {
				item.state = "unknown"
				return nil
			}
			item.state = state
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Component", "Unit", "Status"})
	for _, item := range rows {
		t.AppendRow(table.Row{item.name, item.unit, item.state})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func init() {
	addConfigFlag(statusCmd, &statusFlags)
	rootCmd.AddCommand(statusCmd)
}
