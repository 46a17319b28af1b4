package main

import (
	"github.com/ssargent/catbuf/cmd/catbuf/cmd"
	"github.com/ssargent/catbuf/pkg/di"
)

func main() {
	container := di.NewContainer()
	cmd.SetContainer(container)

	cmd.Execute()
}
