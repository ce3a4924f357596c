package main

import "github.com/nekruzvatanshoev/carrental/pkg/cmd"

func main() {
	cmd.Execute()
}
