// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/datalink/cmd/datalink/cmd"
)

func main() {
	cmd.Execute()
}
