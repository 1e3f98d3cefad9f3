package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func runStatus(cmd *cobra.Command, args []string) {
	v := newVerifier()
	defer v.Close()

	status, err := v.GetStatus(context.Background())
	if err != nil {
		fatalServiceError("Status check", err)
	}

	if jsonOut {
		printJSON(status)
		return
	}

	fmt.Printf("Service:  %s\n", status.Status)
	if status.Version != "" {
		fmt.Printf("Version:  %s\n", status.Version)
	}
	if len(status.Regions) > 0 {
		regions := make([]string, 0, len(status.Regions))
		for _, r := range status.Regions {
			regions = append(regions, string(r))
		}
		fmt.Printf("Regions:  %s\n", strings.Join(regions, ", "))
	}
	if status.ScansRemaining != nil {
		fmt.Printf("Quota:    %d scans remaining\n", *status.ScansRemaining)
	}
}
