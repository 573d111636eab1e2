package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateSampleRates creates a sample shipping rate schedule file for local
// development. Point RATES_FILE at the generated file to use it.
func main() {
	dataDir := "data/rates"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	filePath := filepath.Join(dataDir, "shipping.json")

	doc := `{
  "freeShippingThreshold": "200000",
  "flatFee": "15000"
}
`
	if err := os.WriteFile(filePath, []byte(doc), 0644); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s\n", filePath)
	fmt.Println("Orders at or above 200000 ship free; everything below pays the 15000 flat fee.")
}
