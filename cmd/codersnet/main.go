// Command codersnet は coders network API のエントリーポイント。
//
//	codersnet [serve|worker|migrate|seed|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/TechmongersNL/coders-network-api/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "codersnet: %v\n", err)
		os.Exit(1)
	}
}
