package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/kakunin/internal/config"
	"github.com/raysh454/kakunin/internal/model"
	"github.com/raysh454/kakunin/internal/testutil"
	"github.com/raysh454/kakunin/internal/verifyd"
	"github.com/raysh454/kakunin/internal/verifyd/prober"
)

// cliFixture runs a real verification service plus a target site and points
// the CLI's globals at them. Tests in this file mutate package flag state,
// so none of them run in parallel.
type cliFixture struct {
	service *httptest.Server
	target  *httptest.Server
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	vcfg := verifyd.DefaultConfig()
	vcfg.ListenAddr = ":0"
	vcfg.APIKey = "cli-test-key"
	vcfg.DataDir = t.TempDir()
	vcfg.RegionDelay = 0
	vcfg.RegionStagger = 0
	vcfg.Prober = &prober.Config{Backend: "nethttp", Timeout: 5 * time.Second}
	vcfg.Logger = &testutil.DummyLogger{}

	s, err := verifyd.NewServer(vcfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	service := httptest.NewServer(s)
	t.Cleanup(func() {
		service.Close()
		_ = s.Close()
	})

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<!DOCTYPE html><html><head><title>Fixture</title>`+
			`<meta name="viewport" content="width=device-width"></head><body>ok</body></html>`)
	}))
	t.Cleanup(target.Close)

	oldCfg := cfg
	cfg = &config.FileConfig{
		Service: config.ServiceConfig{BaseURL: service.URL, APIKey: "cli-test-key", TimeoutSeconds: 5},
		History: config.HistoryConfig{PageSize: 20},
	}
	t.Cleanup(func() { cfg = oldCfg })

	// Reset every flag a command reads; the previous test may have left
	// them dirty.
	jsonOut, verbose = false, false
	continentFlag, devMode, noWait = "", false, false
	followFlag = false
	pollMs, waitTimeout = 10, 10
	historyPage, historyLimit = 1, 0
	historyStatus, historyContinent, historyURL, historyTeam = "", "", "", ""
	historyFrom, historyTo = "", ""
	scansLimit, scansOffset = 20, 0

	return &cliFixture{service: service, target: target}
}

// captureOutput swaps stdout while fn runs and returns what it printed.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = old
	return <-done
}

// submitAndFinish drives a verification through the fixture service and
// returns its job id once every region is terminal.
func submitAndFinish(t *testing.T, url string) string {
	t.Helper()
	v := newVerifier()
	defer v.Close()

	resp, err := v.SubmitVerification(context.Background(), &model.VerifyRequest{URL: url})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := v.GetJob(context.Background(), resp.JobID)
		if err == nil && snap != nil && snap.Status == model.JobCompleted {
			return resp.JobID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never completed", resp.JobID)
	return ""
}

// waitPersisted blocks until at least n scans are visible in the history
// store. Outcomes are written asynchronously after a job finishes.
func waitPersisted(t *testing.T, n int) {
	t.Helper()
	v := newVerifier()
	defer v.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := v.ListScans(context.Background(), n, 0)
		if err == nil && resp != nil && len(resp.Scans) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("history never reached %d scans", n)
}

func TestVerifyCommand_FollowsJobToCompletion(t *testing.T) {
	fx := newCLIFixture(t)

	out := captureOutput(t, func() {
		runVerify(&cobra.Command{}, []string{fx.target.URL})
	})

	if !strings.Contains(out, "Submitted ") {
		t.Errorf("expected submission line, got:\n%s", out)
	}
	if !strings.Contains(out, "REGION") || !strings.Contains(out, "\nNA") {
		t.Errorf("expected region table with NA row, got:\n%s", out)
	}
	if !strings.Contains(out, "Report:") {
		t.Errorf("expected report link, got:\n%s", out)
	}
}

func TestVerifyCommand_NoWaitJustSubmits(t *testing.T) {
	fx := newCLIFixture(t)
	noWait = true

	out := captureOutput(t, func() {
		runVerify(&cobra.Command{}, []string{fx.target.URL})
	})

	if !strings.Contains(out, "Submitted ") {
		t.Errorf("expected submission line, got:\n%s", out)
	}
	if strings.Contains(out, "REGION") {
		t.Errorf("no-wait should not render results, got:\n%s", out)
	}
}

func TestVerifyCommand_DevModeProbesOneRegion(t *testing.T) {
	fx := newCLIFixture(t)
	continentFlag = "EU"

	out := captureOutput(t, func() {
		runVerify(&cobra.Command{}, []string{fx.target.URL})
	})

	if !strings.Contains(out, "\nEU") {
		t.Errorf("expected an EU row, got:\n%s", out)
	}
	if strings.Contains(out, "\nNA") {
		t.Errorf("dev run should not include other regions, got:\n%s", out)
	}
}

func TestVerifyCommand_DevModeContinentFromConfig(t *testing.T) {
	fx := newCLIFixture(t)
	cfg.Defaults.Continent = "AS"
	devMode = true

	out := captureOutput(t, func() {
		runVerify(&cobra.Command{}, []string{fx.target.URL})
	})

	if !strings.Contains(out, "\nAS") {
		t.Errorf("expected an AS row, got:\n%s", out)
	}
	if strings.Contains(out, "\nNA") {
		t.Errorf("dev run should not include other regions, got:\n%s", out)
	}
}

func TestVerifyCommand_JSONNoWait(t *testing.T) {
	fx := newCLIFixture(t)
	jsonOut, noWait = true, true

	out := captureOutput(t, func() {
		runVerify(&cobra.Command{}, []string{fx.target.URL})
	})

	var resp model.VerifyResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected pure JSON output, got %q: %v", out, err)
	}
	if resp.JobID == "" || !resp.Success {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestBatchCommand_SubmitsAll(t *testing.T) {
	fx := newCLIFixture(t)
	noWait = true

	out := captureOutput(t, func() {
		runBatch(&cobra.Command{}, []string{fx.target.URL, fx.target.URL + "/about"})
	})

	if !strings.Contains(out, "Batch: 2 submitted, 2 accepted, 0 rejected") {
		t.Errorf("unexpected batch summary, got:\n%s", out)
	}
}

func TestCheckCommand_RendersFinishedJob(t *testing.T) {
	fx := newCLIFixture(t)
	jobID := submitAndFinish(t, fx.target.URL)

	out := captureOutput(t, func() {
		runCheck(&cobra.Command{}, []string{jobID})
	})

	if !strings.Contains(out, "REGION") || !strings.Contains(out, "Report:") {
		t.Errorf("expected a finished-job report, got:\n%s", out)
	}
}

func TestStatusCommand_PrintsServiceInfo(t *testing.T) {
	newCLIFixture(t)

	out := captureOutput(t, func() {
		runStatus(&cobra.Command{}, nil)
	})

	if !strings.Contains(out, "operational") {
		t.Errorf("expected service status, got:\n%s", out)
	}
	if !strings.Contains(out, "scans remaining") {
		t.Errorf("expected quota line, got:\n%s", out)
	}
}

func TestHistoryCommand_PrintsPage(t *testing.T) {
	fx := newCLIFixture(t)
	submitAndFinish(t, fx.target.URL)
	waitPersisted(t, 1)

	out := captureOutput(t, func() {
		runHistory(&cobra.Command{}, nil)
	})

	if !strings.Contains(out, "CREATED") {
		t.Errorf("expected history table, got:\n%s", out)
	}
	if !strings.Contains(out, "Page 1") {
		t.Errorf("expected page footer, got:\n%s", out)
	}
}

func TestScansCommand_PrintsWindow(t *testing.T) {
	fx := newCLIFixture(t)
	submitAndFinish(t, fx.target.URL)
	waitPersisted(t, 1)

	out := captureOutput(t, func() {
		runScans(&cobra.Command{}, nil)
	})

	if !strings.Contains(out, "CREATED") {
		t.Errorf("expected scan table, got:\n%s", out)
	}
	if !strings.Contains(out, "(offset 0)") {
		t.Errorf("expected offset footer, got:\n%s", out)
	}
}

func TestCompareCommand_DiffsTwoRuns(t *testing.T) {
	fx := newCLIFixture(t)
	base := submitAndFinish(t, fx.target.URL)
	head := submitAndFinish(t, fx.target.URL)

	out := captureOutput(t, func() {
		runCompare(&cobra.Command{}, []string{base, head})
	})

	if !strings.Contains(out, "State:") {
		t.Errorf("expected state transition line, got:\n%s", out)
	}
	if !strings.Contains(out, "Avg reachability:") {
		t.Errorf("expected average deltas, got:\n%s", out)
	}
}
