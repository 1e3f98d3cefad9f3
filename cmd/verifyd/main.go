// Command verifyd starts the Kakunin verification service.
// Usage: go run ./cmd/verifyd [listen-addr]
// Default listen address: localhost:8080
// KAKUNIN_API_KEY sets the accepted key, KAKUNIN_LOG_LEVEL the log level.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/verifyd"
)

func main() {
	cfg := verifyd.DefaultConfig()

	// Optional: custom listen address from command line
	if len(os.Args) > 1 {
		cfg.ListenAddr = os.Args[1]
	}
	if key := os.Getenv("KAKUNIN_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	cfg.Logger = logging.NewStdoutLoggerAt("verifyd",
		logging.ParseLevel(os.Getenv("KAKUNIN_LOG_LEVEL")))

	fmt.Println("===========================================")
	fmt.Println("   Kakunin Verification Service")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("This service verifies websites from six regions")
	fmt.Println("and serves job status, history and live progress.")
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  - POST /api/v1/verify          submit a job (single or batch)")
	fmt.Println("  - GET  /api/v1/job/{id}        job status")
	fmt.Println("  - GET  /api/v1/job/{id}/details  full results")
	fmt.Println("  - GET  /api/v1/history         filtered history")
	fmt.Println("  - GET  /api/v1/scans           legacy history window")
	fmt.Println("  - GET  /ws/job/{id}            live progress stream")
	fmt.Println("  - GET  /swagger/index.html     API documentation")
	fmt.Println()
	fmt.Printf("Listening on http://%s\n", cfg.ListenAddr)
	fmt.Println()

	server, err := verifyd.NewServer(cfg)
	if err != nil {
		log.Fatalf("Server setup error: %v", err)
	}
	defer server.Close()

	if err := server.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
