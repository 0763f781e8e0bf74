package main

import "github.com/fx147/preview-operator/cmd/preview-operator/cmd"

func main() {
	cmd.Execute()
}
