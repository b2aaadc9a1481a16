package main

import "github.com/aPeter1/musrfit-fork-sub008/cmd"

func main() {
	cmd.Execute()
}
