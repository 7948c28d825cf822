package main

import (
	"github.com/edpaget/kongfig/pkg/cmd"
)

func main() {
	cmd.Execute()
}
