package main

import "github.com/vallemsec/spectra-web/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
