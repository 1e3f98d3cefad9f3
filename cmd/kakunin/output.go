package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/raysh454/kakunin/internal/api"
	"github.com/raysh454/kakunin/internal/config"
	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

// quietLogger drops client internals so tables and JSON stay clean. The
// --verbose flag swaps in the structured stdout logger instead.
type quietLogger struct{}

func (quietLogger) Debug(msg string, fields ...logging.Field) {}
func (quietLogger) Info(msg string, fields ...logging.Field)  {}
func (quietLogger) Warn(msg string, fields ...logging.Field)  {}
func (quietLogger) Error(msg string, fields ...logging.Field) {}

func (l quietLogger) With(_ ...logging.Field) logging.Logger { return l }

func cliLogger() logging.Logger {
	if verbose {
		return logging.NewStdoutLogger("kakunin")
	}
	return quietLogger{}
}

// newVerifier builds the service client from the loaded config.
func newVerifier() interfaces.Verifier {
	v, err := api.NewClient(cfg.APIConfig(), cliLogger(), nil)
	if err != nil {
		log.Fatalf("Failed to create the service client: %v", err)
	}
	return v
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode JSON output: %v", err)
	}
	fmt.Println(string(data))
}

// fatalServiceError maps the client error taxonomy onto actionable
// messages. action names the attempt, e.g. "Submission" or "History".
func fatalServiceError(action string, err error) {
	var apiErr *api.APIError
	var timeoutErr *api.TimeoutError
	switch {
	case errors.Is(err, api.ErrNoAPIKey):
		log.Fatalf("No API key configured. Set %s or service.api_key in the config file.", config.EnvAPIKey)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusPaymentRequired:
		log.Fatalf("%s rejected: no scans remaining on this API key", action)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		log.Fatalf("The service rejected the API key: %s", apiErr.Message)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		log.Fatalf("%s failed: the service does not know that job", action)
	case errors.As(err, &timeoutErr):
		log.Fatalf("The service did not answer in time: %v", err)
	default:
		log.Fatalf("%s failed: %v", action, err)
	}
}

// absURL resolves service-relative artifact paths against the configured
// base URL so printed links are clickable.
func absURL(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return strings.TrimRight(cfg.Service.BaseURL, "/") + p
}

func fmtScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtMillis(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0fms", *v)
}

func fmtHTTP(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func fmtDelta(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f", *v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func trunc(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// renderResult prints the terminal state of a job: the overall
// classification, the per-region table, vitals and artifact links.
func renderResult(job *model.Job, summary *model.Summary) {
	fmt.Printf("\n%s  %s\n", strings.ToUpper(string(summary.State)), job.URL)
	fmt.Printf("Reachability avg %s, usability avg %s, %d/%d regions completed\n\n",
		fmtScore(summary.AvgReachability), fmtScore(summary.AvgUsability),
		summary.CompletedCount, summary.TotalCount)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tSTATUS\tSTATE\tREACH\tUSAB\tHTTP\tTIME")
	for _, a := range summary.Regions {
		res := job.RegionResults[a.Region]
		if res == nil {
			continue
		}
		errText := ""
		if res.Error != "" {
			errText = "  " + res.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s%s\n",
			a.Region, res.Status, dash(string(a.State)),
			fmtScore(a.Reachability), fmtScore(a.Usability),
			fmtHTTP(res.HTTPStatus), fmtMillis(res.ResponseTimeMs), errText)
	}
	_ = w.Flush()

	renderVitals(job, summary)

	if job.ReportURL != "" {
		fmt.Printf("\nReport:  %s\n", absURL(job.ReportURL))
	}
	if job.GalleryURL != "" {
		fmt.Printf("Gallery: %s\n", absURL(job.GalleryURL))
	}
}

// renderVitals prints one line per region that reported samples, each vital
// tagged with its threshold rating.
func renderVitals(job *model.Job, summary *model.Summary) {
	printed := false
	for _, a := range summary.Regions {
		res := job.RegionResults[a.Region]
		if res == nil || res.WebVitals == nil || len(a.VitalRatings) == 0 {
			continue
		}
		if !printed {
			fmt.Println()
			printed = true
		}
		parts := make([]string, 0, len(model.VitalNames))
		for _, name := range model.VitalNames {
			val := res.WebVitals.Value(name)
			rating, ok := a.VitalRatings[name]
			if val == nil || !ok {
				continue
			}
			if name == model.VitalCLS {
				parts = append(parts, fmt.Sprintf("%s %.2f (%s)", name, *val, rating))
			} else {
				parts = append(parts, fmt.Sprintf("%s %.0fms (%s)", name, *val, rating))
			}
		}
		fmt.Printf("Vitals %s: %s\n", a.Region, strings.Join(parts, ", "))
	}
}

// renderSnapshotTable prints an in-flight job's region states.
func renderSnapshotTable(job *model.Job) {
	fmt.Printf("%s  %s  [%s]\n", job.ID, job.URL, job.ProgressLabel())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tSTATUS\tHTTP\tTIME")
	for _, region := range job.Regions {
		res := job.RegionResults[region]
		if res == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			region, res.Status, fmtHTTP(res.HTTPStatus), fmtMillis(res.ResponseTimeMs))
	}
	_ = w.Flush()
}

// renderHistoryPage prints the rows plus whatever pagination metadata the
// serving endpoint actually reported.
func renderHistoryPage(page *model.HistoryPage) {
	renderScanRows(page.Items)
	fmt.Println(pageFooter(page))
}

func renderScanRows(items []model.ScanRecord) {
	if len(items) == 0 {
		fmt.Println("No scans.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tJOB\tURL\tSTATUS\tSTATE\tREACH\tUSAB")
	for _, rec := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(rec.JobID), trunc(rec.URL, 48), rec.Status, dash(rec.State),
			fmtScore(rec.AvgReachability), fmtScore(rec.AvgUsability))
	}
	_ = w.Flush()
}

func pageFooter(page *model.HistoryPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page %d", page.Page)
	if page.TotalPages != nil {
		fmt.Fprintf(&b, " of %d", *page.TotalPages)
	}
	if page.Total != nil {
		fmt.Fprintf(&b, ", %d scans", *page.Total)
	}
	if page.Source == model.HistorySourceLegacy {
		b.WriteString(" (served by the legacy listing)")
	}
	return b.String()
}

// renderDiff prints the movement between two summaries of the same target.
func renderDiff(diff *model.SummaryDiff) {
	fmt.Printf("\n%s\n", diff.URL)
	change := "unchanged"
	if diff.StateChanged {
		change = "changed"
	}
	fmt.Printf("State: %s -> %s (%s)\n", diff.StateBase, diff.StateHead, change)
	fmt.Printf("Avg reachability: %s   Avg usability: %s\n\n",
		fmtDelta(diff.AvgReachabilityDelta), fmtDelta(diff.AvgUsabilityDelta))

	if len(diff.RegionDeltas) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tSTATE\tREACH\tUSAB")
	for _, d := range diff.RegionDeltas {
		fmt.Fprintf(w, "%s\t%s -> %s\t%s\t%s\n",
			d.Region, dash(string(d.StateBase)), dash(string(d.StateHead)),
			fmtDelta(d.ReachabilityDelta), fmtDelta(d.UsabilityDelta))
	}
	_ = w.Flush()
}
