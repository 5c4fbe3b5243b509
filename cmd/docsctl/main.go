package main

import "github.com/platinummonkey/docsapi/pkg/cli"

func main() {
	cli.Execute()
}
