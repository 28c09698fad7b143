package cmd

import "fmt"

const banner = `
   __                             _
  / _| __ _ _   ___  ____ _  __ _| |_ ___
 | |_ / _` + "`" + ` | | | \ \/ / _` + "`" + ` |/ _` + "`" + ` | __/ _ \
 |  _| (_| | |_| |>  < (_| | (_| | ||  __/
 |_|  \__,_|\__,_/_/\_\__, |\__,_|\__\___|
                      |___/
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  SSO Gateway Simulator - Version %s\x1b[0m\n\n", Version)
}
