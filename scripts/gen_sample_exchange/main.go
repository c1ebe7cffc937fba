package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mixmatch/internal/model"
	"mixmatch/internal/store"
)

// Writes a sample exchange file and a matching coupon selection file so the
// engine can be exercised without a live POS.
func main() {
	dir := "data/exchange"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	exchangePath := filepath.Join(dir, "intercambio.xml")
	exchange := `<ticket>
    <numticket>104</numticket>
    <identificador>AREAS-TIP:05-COD:123456789-X</identificador>
    <idpromocion>10</idpromocion>
    <aplicarmm>0</aplicarmm>
    <estadomm></estadomm>
    <numlineas>2</numlineas>
    <total>14,90</total>
</ticket>
`
	if err := os.WriteFile(exchangePath, []byte(exchange), 0644); err != nil {
		log.Fatalf("Failed to write exchange file: %v", err)
	}
	fmt.Printf("Created %s\n", exchangePath)

	selectionPath := filepath.Join(dir, "coupons.json")
	selections := store.NewSelectionStore(selectionPath, zerolog.Nop())
	err := selections.Save("ICOUPON", []model.Coupon{
		{Ref: "CP-SAMPLE-1", Name: "Free menu", Value: decimal.NewFromFloat(8.50)},
		{Ref: "CP-SAMPLE-2", Name: "Free drink", Value: decimal.NewFromFloat(2.00)},
	})
	if err != nil {
		log.Fatalf("Failed to write selection file: %v", err)
	}
	fmt.Printf("Created %s\n", selectionPath)

	fmt.Println("\nSample exchange files created successfully!")
	fmt.Println("Point EXCHANGE_PATH at the directory and run the engine.")
}
