// Command kakunin is the website verification CLI. It submits URLs to the
// verification service, follows each region's probe to completion and pages
// through the scan history.
package main

import "log"

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
