package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/record"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var allStatuses = []record.Status{
	record.StatusQueued,
	record.StatusInProgress,
	record.StatusFailed,
	record.StatusSucceeded,
}

var listFlags struct {
	statuses []string
	json     bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transfer records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		statuses := allStatuses
		if len(listFlags.statuses) > 0 {
			if statuses, err = parseStatuses(listFlags.statuses); err != nil {
				return
			}
		}

		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		var recs []record.Record
		for _, status := range statuses {
			var byStatus []record.Record
			if byStatus, err = transfers.ListByStatus(cmd.Context(), status); err != nil {
				return
			}
			recs = append(recs, byStatus...)
		}

		if listFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tRESULT\tKIND\tACCOUNT\tREMOTE PATH\tATTEMPT")
		for _, rec := range recs {
			result := "-"
			if rec.LastResult != nil {
				result = string(*rec.LastResult)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
				rec.ID, rec.Status, result, rec.Kind, rec.AccountName, rec.RemotePath, rec.Attempt)
		}
		return w.Flush()
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <record id>",
	Short: "Queue a new attempt of a failed record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseRecordID(args[0])
		if err != nil {
			return
		}
		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		newID, err := cloudxfer.NewEnqueuer(logger, transfers, nil).Retry(cmd.Context(), id)
		if err != nil {
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), newID)
		return
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <record id>",
	Short: "Cancel a queued record",
	Long: `Cancel fails a queued record with the Cancelled result. Records already
running are stopped by the engine process on shutdown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseRecordID(args[0])
		if err != nil {
			return
		}
		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		// this dispatcher never runs, it only owns the queued to cancelled transition
		dispatcher := cloudxfer.NewDispatcher(logger, transfers, nil)
		cancelled, err := dispatcher.Cancel(cmd.Context(), id)
		if err != nil {
			return
		}
		if !cancelled {
			return fmt.Errorf("record %d is not queued", id)
		}
		return
	},
}

func parseRecordID(arg string) (id int64, err error) {
	if id, err = strconv.ParseInt(arg, 10, 64); err != nil || id <= 0 {
		err = fmt.Errorf("invalid record id %q", arg)
	}
	return
}

func parseStatuses(names []string) (statuses []record.Status, err error) {
	for _, name := range names {
		status, ok := lo.Find(allStatuses, func(s record.Status) bool {
			return s.String() == strings.ToUpper(name)
		})
		if !ok {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		statuses = append(statuses, status)
	}
	return lo.Uniq(statuses), nil
}

func init() {
	listCmd.Flags().StringSliceVar(&listFlags.statuses, "status", nil,
		"statuses to list (QUEUED, IN_PROGRESS, FAILED, SUCCEEDED), all when empty")
	listCmd.Flags().BoolVar(&listFlags.json, "json", false, "print the records as JSON")
}
