// The main package for the afl-crawler executable.
package main

import (
	"github.com/JakeFAU/afl-job-crawler/cmd"
)

func main() {
	cmd.Execute()
}
