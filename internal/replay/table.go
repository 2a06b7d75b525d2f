package replay

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"wisefido-rppg/internal/models"
)

// PrintTable renders estimates as a table.
func PrintTable(w io.Writer, estimates []*models.MetricEstimate) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Time (s)", "Heart Rate (BPM)", "HRV (ms)", "Eye Redness", "Level"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(estimates))
	for i, est := range estimates {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(est.Timestamp, 'f', 2, 64),
			formatMetric(est.HeartRateBPM, 1),
			formatMetric(est.HRVMs, 1),
			formatMetric(est.EyeRedness, 1),
			est.Label,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatMetric(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
