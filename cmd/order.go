package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/timeline"
	"github.com/dock108/scrolldown/internal/domain/types"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newOrderCmd())
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Order a JSON event file relative to a moment",
		Long: "Reads play-by-play events (a JSON array or an object with an \"events\" field) " +
			"and prints the events up to the moment in elapsed-time order.",
		RunE: runOrder,
	}
	cmd.Flags().String("file", "-", "event file to read; - reads stdin")
	cmd.Flags().String("moment-id", "", "moment identifier")
	cmd.Flags().Int("moment-period", 0, "period of the moment (1-4 regulation, 5+ overtime)")
	cmd.Flags().String("moment-clock", "", "game clock at the moment, MM:SS remaining")
	cmd.Flags().Bool("compact", false, "print compact JSON")
	return cmd
}

func runOrder(cmd *cobra.Command, _ []string) error {
	m, err := momentFromFlags(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	events, err := decodeEvents(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	stats := timeline.Summarize(m, events)
	resp := types.OrderResponse{
		Events:      timeline.Ordered(m, events),
		FilteredOut: stats.FilteredOut,
		Unresolved:  stats.Unresolved,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

func momentFromFlags(cmd *cobra.Command) (model.Moment, error) {
	flags := cmd.Flags()
	id, _ := flags.GetString("moment-id")
	var m model.Moment
	if id != "" {
		m.ID = model.ParseID(id)
	}
	if flags.Changed("moment-period") {
		p, _ := flags.GetInt("moment-period")
		if p < 1 {
			return model.Moment{}, fmt.Errorf("moment-period must be >= 1, got %d", p)
		}
		m.Period = &p
	}
	if flags.Changed("moment-clock") {
		c, _ := flags.GetString("moment-clock")
		m.GameClock = &c
	}
	return m, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeEvents accepts either a bare array or the backend's response body.
func decodeEvents(data []byte) ([]model.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var events []model.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var resp types.PbpResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}
