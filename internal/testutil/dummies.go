// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Verifier ──────────────────────────────────────────────────────────

// VerifierCall records one method invocation on a ScriptedVerifier.
type VerifierCall struct {
	Method string
	JobID  string
	URL    string
	Page   int
	Limit  int
	Offset int
}

// ScriptedVerifier implements interfaces.Verifier from preloaded responses.
// Snapshot queues pop per call and the last element is sticky, so a script
// of [processing, completed] keeps answering completed once drained.
type ScriptedVerifier struct {
	mu sync.Mutex

	VerifyResponse *model.VerifyResponse
	VerifyErr      error

	BatchResponse *model.BatchResponse
	BatchErr      error

	Snapshots   map[string][]*model.JobSnapshot
	SnapshotErr error

	Status    *model.StatusResponse
	StatusErr error

	ScanList *model.ScanListResponse
	ScansErr error

	HistoryPage *model.HistoryResponse
	HistoryErr  error

	// DetailsHook, when set, runs inside GetJobDetails before the snapshot
	// queue is consumed. Tests use it to hold calls open.
	DetailsHook func(jobID string)

	Calls []VerifierCall
}

func (v *ScriptedVerifier) record(c VerifierCall) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, c)
}

// CallCount returns how many times method was invoked.
func (v *ScriptedVerifier) CallCount(method string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, c := range v.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (v *ScriptedVerifier) SubmitVerification(_ context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error) {
	call := VerifierCall{Method: "SubmitVerification"}
	if req != nil {
		call.URL = req.URL
	}
	v.record(call)
	if v.VerifyErr != nil {
		return nil, v.VerifyErr
	}
	return v.VerifyResponse, nil
}

func (v *ScriptedVerifier) SubmitBatch(_ context.Context, _ *model.VerifyRequest) (*model.BatchResponse, error) {
	v.record(VerifierCall{Method: "SubmitBatch"})
	if v.BatchErr != nil {
		return nil, v.BatchErr
	}
	return v.BatchResponse, nil
}

func (v *ScriptedVerifier) GetJob(_ context.Context, jobID string) (*model.JobSnapshot, error) {
	v.record(VerifierCall{Method: "GetJob", JobID: jobID})
	return v.popSnapshot(jobID)
}

func (v *ScriptedVerifier) GetJobDetails(_ context.Context, jobID string) (*model.JobSnapshot, error) {
	v.record(VerifierCall{Method: "GetJobDetails", JobID: jobID})
	if v.DetailsHook != nil {
		v.DetailsHook(jobID)
	}
	return v.popSnapshot(jobID)
}

func (v *ScriptedVerifier) popSnapshot(jobID string) (*model.JobSnapshot, error) {
	if v.SnapshotErr != nil {
		return nil, v.SnapshotErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	queue := v.Snapshots[jobID]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no scripted snapshot for job %q", jobID)
	}
	snap := queue[0]
	if len(queue) > 1 {
		v.Snapshots[jobID] = queue[1:]
	}
	return snap, nil
}

func (v *ScriptedVerifier) GetStatus(_ context.Context) (*model.StatusResponse, error) {
	v.record(VerifierCall{Method: "GetStatus"})
	if v.StatusErr != nil {
		return nil, v.StatusErr
	}
	return v.Status, nil
}

func (v *ScriptedVerifier) ListScans(_ context.Context, limit, offset int) (*model.ScanListResponse, error) {
	v.record(VerifierCall{Method: "ListScans", Limit: limit, Offset: offset})
	if v.ScansErr != nil {
		return nil, v.ScansErr
	}
	return v.ScanList, nil
}

func (v *ScriptedVerifier) QueryHistory(_ context.Context, _ model.HistoryFilters, page, limit int) (*model.HistoryResponse, error) {
	v.record(VerifierCall{Method: "QueryHistory", Page: page, Limit: limit})
	if v.HistoryErr != nil {
		return nil, v.HistoryErr
	}
	return v.HistoryPage, nil
}

func (v *ScriptedVerifier) Close() error { return nil }
