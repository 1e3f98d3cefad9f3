package interfaces

import (
	"context"

	"github.com/raysh454/kakunin/internal/model"
)

// Verifier is the client contract for the remote verification service.
// Implementations submit URLs for multi-region probing and expose the job,
// status and history endpoints.
//
// The rest of the codebase depends on this abstraction rather than on the
// concrete HTTP transport, so tests can inject scripted doubles.
type Verifier interface {
	// SubmitVerification submits a single URL in global or dev mode and
	// returns the service's acceptance envelope.
	SubmitVerification(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error)

	// SubmitBatch submits up to model.MaxBatchURLs targets at once. Each
	// accepted target becomes an independent global job.
	SubmitBatch(ctx context.Context, req *model.VerifyRequest) (*model.BatchResponse, error)

	// GetJob fetches the lightweight job snapshot.
	GetJob(ctx context.Context, jobID string) (*model.JobSnapshot, error)

	// GetJobDetails fetches the full projection including vitals, state
	// labels and screenshot URLs. A service without details for the job may
	// answer with an absent body, in which case both returns are nil.
	GetJobDetails(ctx context.Context, jobID string) (*model.JobSnapshot, error)

	// GetStatus reports service health, available regions and quota.
	GetStatus(ctx context.Context) (*model.StatusResponse, error)

	// ListScans calls the legacy offset-paginated listing endpoint.
	ListScans(ctx context.Context, limit, offset int) (*model.ScanListResponse, error)

	// QueryHistory calls the filtered, page-based history endpoint.
	QueryHistory(ctx context.Context, filters model.HistoryFilters, page, limit int) (*model.HistoryResponse, error)

	// Close releases any resources held by the client.
	Close() error
}
