package main

import (
	_ "reflow_oven/docs"
	"reflow_oven/internal/cli"
)

// @title                       Reflow Oven API
// @version                     1.0
// @description                 Closed-loop reflow oven controller: run commands, live state, profile and history.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cli.Execute()
}
