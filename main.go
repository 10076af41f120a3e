package main

import (
	"github.com/anuragpy07/Sausico/cmd"
)

func main() {
	cmd.Execute()
}
