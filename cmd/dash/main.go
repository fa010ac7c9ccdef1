// Command dash is the sheetdash CLI.
package main

import "github.com/klytics/sheetdash/cmd"

func main() {
	cmd.Execute()
}
